// Command civicmap joins tabular civic data onto Census geography and draws
// choropleth maps.
//
// Usage:
//
//	civicmap fetch shapefile --geography tract --state CO --year 2019
//	civicmap fetch acs --year 2019 --get NAME,B19013_001E --for tract:* --in state:08 --out income.csv
//	civicmap map tl_2019_08_tract --join-on GEOID --data income.csv --color-by B19013_001E --out income.html
//
// See --help for all available options.
package main

func main() {
	Execute()
}
