package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/saferoad/routesafety/internal/clients/google"
	"github.com/saferoad/routesafety/internal/lib/route"
)

func main() {
	var (
		apiKey      = flag.String("api-key", "", "Google Maps API key (or set ROUTESAFETY_GOOGLE_API_KEY env var)")
		origin      = flag.String("origin", "Fort Kochi", "Route origin")
		destination = flag.String("dest", "Edappally", "Route destination")
		radius      = flag.Float64("radius", 100, "Nearby search radius in meters")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Google Maps API Test Tool\n\n")
		fmt.Printf("Calls Directions and Places Nearby Search with the live API.\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s -api-key=YOUR_KEY\n", os.Args[0])
		fmt.Printf("  %s -origin=\"Thampanoor\" -dest=\"Kovalam\"\n", os.Args[0])
		return
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv("ROUTESAFETY_GOOGLE_API_KEY")
	}
	if key == "" {
		log.Fatal("Google Maps API key required. Use -api-key flag or ROUTESAFETY_GOOGLE_API_KEY env var")
	}

	fmt.Printf("Google Maps API Test\n")
	fmt.Printf("====================\n")
	fmt.Printf("Origin: %s\n", *origin)
	fmt.Printf("Destination: %s\n", *destination)
	fmt.Printf("API Key: %s...\n\n", key[:min(len(key), 10)])

	ctx := context.Background()
	client := google.NewClient(key)

	fmt.Printf("Testing Directions...\n")
	result, err := client.Route(ctx, *origin, *destination)
	if err != nil {
		log.Fatalf("Directions failed: %v", err)
	}
	if result.Status != route.DirectionsStatusOK {
		log.Fatalf("Directions returned %s: %s", result.Status, result.ErrorMessage)
	}

	r := result.Route
	fmt.Printf("Summary: %s\n", r.Summary)
	fmt.Printf("Distance: %.2f km\n", float64(r.DistanceMeters)/1000.0)
	fmt.Printf("Duration: %.1f minutes\n", float64(r.DurationSeconds)/60.0)
	fmt.Printf("Steps: %d, overview points: %d\n", len(r.Steps), len(r.OverviewPath))
	for i, step := range r.Steps[:min(len(r.Steps), 5)] {
		fmt.Printf("  %d. %s (%d points)\n", i+1, step.Instructions, len(step.Path))
	}

	if len(r.OverviewPath) == 0 {
		log.Fatal("Route has no overview path to search around")
	}
	anchor := r.OverviewPath[len(r.OverviewPath)/2]

	fmt.Printf("\nTesting Nearby Search at %.5f,%.5f...\n", anchor.Latitude, anchor.Longitude)
	for _, landmarkType := range route.LandmarkTypes {
		places, err := client.NearbySearch(ctx, anchor, *radius, landmarkType)
		if err != nil {
			log.Fatalf("Nearby search (%s) failed: %v", landmarkType, err)
		}
		names := make([]string, 0, len(places.Places))
		for _, p := range places.Places {
			names = append(names, p.Name)
		}
		fmt.Printf("  %s [%s]: %d results %s\n", landmarkType, places.Status, len(places.Places), strings.Join(names, ", "))
	}

	fmt.Printf("\nAll Google Maps API calls succeeded\n")
}
