package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/ephemeris"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/gpstime"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/orbit"
)

func main() {
	file := flag.String("file", "", "path to a RINEX GPS navigation file")
	sat := flag.String("sat", "", "satellite ID, e.g. G05 (empty: all satellites)")
	obsRaw := flag.String("time", "", "observation time, RFC3339 or 'YYYY-MM-DD HH:MM:SS' UTC (empty: first record's epoch)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: diag -file nav.n [-sat G05] [-time '2023-09-09 00:00:09']")
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Println("ERROR reading navigation file:", err)
		os.Exit(1)
	}

	svc := ephemeris.NewService(ephemeris.NewStore(nil), 1, logger)
	catalog, err := svc.Load(string(data))
	if err != nil {
		fmt.Println("ERROR loading navigation file:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d records (%d blocks skipped), leap seconds %d\n",
		len(catalog.Records), catalog.Skipped, catalog.LeapSeconds)

	obs := catalog.Records[0].Toc
	if *obsRaw != "" {
		obs, err = ephemeris.ParseObservationTime(*obsRaw)
		if err != nil {
			fmt.Println("ERROR parsing observation time:", err)
			os.Exit(1)
		}
	}
	week, sow := gpstime.ToWeekAndSow(obs, catalog.LeapSeconds)
	fmt.Printf("Observation: %v (GPS week %d, sow %.1f)\n", obs, week, sow)

	ids := catalog.Satellites()
	if *sat != "" {
		ids = []string{*sat}
	}

	for _, id := range ids {
		rec, err := ephemeris.Select(catalog, id, obs)
		if err != nil {
			fmt.Printf("  %s: ERROR %v\n", id, err)
			continue
		}
		pos := orbit.Propagate(rec, obs, catalog.LeapSeconds)
		if !pos.Finite() {
			fmt.Printf("  %s: non-finite result (toe=%.1f)\n", id, rec.Toe)
			continue
		}
		fmt.Printf("  %s: toe=%.1f tk=%+.1f X=%.3f Y=%.3f Z=%.3f r=%.3f km\n",
			id, rec.Toe, pos.Tk, pos.X/1e3, pos.Y/1e3, pos.Z/1e3, pos.Distance()/1e3)
		if !pos.Converged {
			fmt.Printf("  %s: Kepler iteration did not converge (%d iterations)\n", id, pos.Iterations)
		}
	}
}
