// Command genmock writes the district GeoJSON fixture used by the in-memory
// deployment and the adapter tests. Every n-th district is written as a small
// square polygon instead of a point so the centroid path gets exercised.
//
// Usage:
//
//	go run ./cmd/genmock -out data/districts_sample.json -polygon-every 3
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// halfSide is half the edge length, in degrees, of generated square boundaries.
const halfSide = 0.05

type district struct {
	id       string
	name     string
	province string
	lat, lon float64
}

// Approximate centroids of the 30 districts of Rwanda.
var districts = []district{
	{"GAS", "Gasabo", "Kigali", -1.8853, 30.1044},
	{"KIC", "Kicukiro", "Kigali", -1.9995, 30.1044},
	{"NYG", "Nyarugenge", "Kigali", -1.9536, 30.0447},
	{"BUG", "Bugesera", "East", -2.2063, 30.1498},
	{"GAT", "Gatsibo", "East", -1.5848, 30.4361},
	{"KAY", "Kayonza", "East", -1.9009, 30.5087},
	{"KIR", "Kirehe", "East", -2.2667, 30.6667},
	{"NGO", "Ngoma", "East", -2.1598, 30.4737},
	{"NYT", "Nyagatare", "East", -1.2986, 30.3277},
	{"RWA", "Rwamagana", "East", -1.9487, 30.4347},
	{"BUR", "Burera", "North", -1.4700, 29.8300},
	{"GAK", "Gakenke", "North", -1.7000, 29.7800},
	{"GIC", "Gicumbi", "North", -1.5781, 30.0673},
	{"MUS", "Musanze", "North", -1.4998, 29.6344},
	{"RUL", "Rulindo", "North", -1.7281, 30.0400},
	{"GIS", "Gisagara", "South", -2.6167, 29.8333},
	{"HUY", "Huye", "South", -2.5967, 29.7394},
	{"KAM", "Kamonyi", "South", -2.0067, 29.9000},
	{"MUH", "Muhanga", "South", -2.0833, 29.7500},
	{"NYM", "Nyamagabe", "South", -2.4667, 29.5000},
	{"NYZ", "Nyanza", "South", -2.3500, 29.7500},
	{"NYR", "Nyaruguru", "South", -2.7000, 29.5500},
	{"RUH", "Ruhango", "South", -2.2333, 29.7833},
	{"KAR", "Karongi", "West", -2.0667, 29.3667},
	{"NGR", "Ngororero", "West", -1.8667, 29.6333},
	{"NYB", "Nyabihu", "West", -1.6500, 29.5000},
	{"NYS", "Nyamasheke", "West", -2.3333, 29.0833},
	{"RUB", "Rubavu", "West", -1.6800, 29.3500},
	{"RUS", "Rusizi", "West", -2.4847, 28.9075},
	{"RUT", "Rutsiro", "West", -1.9333, 29.3333},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/districts_sample.json", "output path for the GeoJSON fixture")
	polygonEvery := flag.Int("polygon-every", 3, "write every n-th district as a polygon (0 disables)")
	flag.Parse()

	fc := build(*polygonEvery)

	if err := writeJSON(*out, fc); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}

	printStats(fc)
	log.Printf("wrote fixture: %s", *out)
	return nil
}

func build(polygonEvery int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, d := range districts {
		center := orb.Point{d.lon, d.lat}

		var g orb.Geometry = center
		if polygonEvery > 0 && (i+1)%polygonEvery == 0 {
			g = square(center)
		}

		f := geojson.NewFeature(g)
		f.Properties["id"] = d.id
		f.Properties["name"] = d.name
		f.Properties["province"] = d.province
		fc.Append(f)
	}
	return fc
}

func square(c orb.Point) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{c.Lon() - halfSide, c.Lat() - halfSide},
		{c.Lon() + halfSide, c.Lat() - halfSide},
		{c.Lon() + halfSide, c.Lat() + halfSide},
		{c.Lon() - halfSide, c.Lat() + halfSide},
		{c.Lon() - halfSide, c.Lat() - halfSide},
	}}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(fc *geojson.FeatureCollection) {
	byType := map[string]int{}
	byProvince := map[string]int{}
	for _, f := range fc.Features {
		byType[f.Geometry.GeoJSONType()]++
		byProvince[f.Properties.MustString("province", "")]++
	}

	parts := make([]string, 0, len(byProvince))
	for p, n := range byProvince {
		parts = append(parts, fmt.Sprintf("%s=%d", p, n))
	}
	slices.Sort(parts)
	log.Printf("features: %d (points=%d polygons=%d)", len(fc.Features), byType["Point"], byType["Polygon"])
	log.Printf("provinces: %s", strings.Join(parts, " "))
}
