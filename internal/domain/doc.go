// Package domain models the station table and per-cell station weights that
// flow through the gridding service.
//
// # Data Source
//
// Station records are published by the upstream ETL stage, one JSON document
// per station, keyed by station identifier on a compacted topic. A record with
// an empty value is a tombstone removing the station.
//
// # GISTEMP Conventions
//
// Coordinates:
//
//	Latitude in degrees north, [-90, 90]; longitude in degrees east, [-180, 180].
//	A record with either coordinate missing is rejected rather than placed
//	at the equator or the prime meridian.
//
// Series:
//
//	Monthly readings {year, month, value}. A null value is a missing month and
//	is carried through untouched; gridding never looks at the series.
//
// Weights:
//
//	Each station within 1200 km of a fine cell's center contributes with
//	weight 1 - d/1200, so a station at the center has weight 1 and a station
//	at the cutoff distance is excluded.
//
// # Cell Keys
//
// Published cells are keyed by their fine index (0..7999 for the default
// 10x10 subdivision). The sink topic can therefore be compacted and always
// holds the latest generation of every cell. The generation number is also
// carried in the message headers so consumers can discard a partially
// received older generation.
package domain
