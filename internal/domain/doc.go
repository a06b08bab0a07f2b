// Package domain models historical climatology lookups over NASA MERRA-2
// reanalysis data.
//
// # Data Source
//
// Daily statistics come from the MERRA-2 M2SDNXSLV collection ("statD_2d_slv_Nx"),
// served by the NASA GES DISC data archive as one NetCDF-4 file per calendar
// day. File names embed a production-stream prefix and a date tag:
//
//	MERRA2_<stream>.statD_2d_slv_Nx.<YYYYMMDD>.nc4
//
// The stream number (100, 200, 300, 400, ...) depends on which reprocessing
// stream produced the file and varies by year, so file names cannot be
// constructed ahead of time; they are discovered from the per-month directory
// listing and matched by date tag.
//
// # Variables and Units
//
//	T2MMEAN   daily mean 2-meter air temperature, Kelvin
//	TPRECMAX  daily maximum total precipitation rate, kg m-2 s-1
//	U10M/V10M 10-meter eastward/northward wind components, m s-1
//
// Temperature is reported in Celsius (K − 273.15). Precipitation is converted
// to mm/day by multiplying the rate by 86400 seconds; treating the daily
// maximum rate as if it held all day overstates accumulation, but it is the
// established convention for this service and is kept deliberately.
//
// Wind components are not part of the daily-statistics collection and require
// a server-side subset job (see the subset package) that crops and
// diurnally aggregates an hourly collection before download.
//
// # Failure Philosophy
//
// A lookup spans a window of past years and every statistic is computed from
// whichever years actually produced data. Any single year failing — listing
// unavailable, download refused, subset job stuck, variable missing from a
// file — is a soft failure that narrows the sample without failing the
// request. Only a request with zero contributing years reports no data.
package domain
