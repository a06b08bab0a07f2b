package earthdata

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Credentials supplies HTTP basic auth for Earthdata-protected downloads.
// The zero value applies no authentication.
type Credentials struct {
	Username string
	Password string
}

// FromNetrc reads credentials for machine from a netrc-style file, the
// machine-readable credential format Earthdata documents for scripted access.
func FromNetrc(path, machine string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read netrc %s: %w", path, err)
	}

	fields := strings.Fields(string(data))
	var creds Credentials
	inMachine := false
	for i := 0; i < len(fields)-1; i++ {
		switch fields[i] {
		case "machine":
			inMachine = fields[i+1] == machine
			i++
		case "default":
			inMachine = creds.Username == "" && creds.Password == ""
		case "login":
			if inMachine {
				creds.Username = fields[i+1]
			}
			i++
		case "password":
			if inMachine {
				creds.Password = fields[i+1]
			}
			i++
		}
	}

	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("netrc %s: no credentials for machine %s", path, machine)
	}
	return creds, nil
}

// Apply sets basic auth on req when credentials are configured.
func (c Credentials) Apply(req *http.Request) {
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}
