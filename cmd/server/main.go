// Package main provides the bottom products HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/adapter/store/climatology"
	"go.azmp.io/bottom-fields/internal/adapter/store/divisions"
	httpHandler "go.azmp.io/bottom-fields/internal/http"
	"go.azmp.io/bottom-fields/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("bottom-fields server version %s\n", version)
		return
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	productDir := getEnv("PRODUCT_DIR", "./data/products")
	exclusionPath := getEnv("EXCLUSION_CONTOUR_PATH", "")

	log.Info("Starting bottom products server...")
	log.Infof("Port: %s", port)
	log.Infof("Product directory: %s", productDir)

	// Division catalog, with the fall exclusion contour when configured.
	region := divisions.NewCatalog(nil)
	if exclusionPath != "" {
		contour, err := divisions.LoadExclusion(exclusionPath)
		if err != nil {
			log.Fatalf("Failed to load exclusion contour: %v", err)
		}
		region = divisions.NewCatalog(contour)
		log.Infof("Exclusion contour: %s", exclusionPath)
	}

	catalog := climatology.NewCatalog(productDir, climatology.NewNetCDFStore())
	if names, err := catalog.List(); err != nil {
		log.Warnf("Product directory unavailable: %v", err)
	} else {
		log.Infof("Found %d products", len(names))
	}

	products := usecase.NewProductService(catalog, region)
	router := httpHandler.SetupRouter(products)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", port)
	log.Info("API endpoints:")
	log.Info("  - GET /v1/products")
	log.Info("  - GET /v1/products/:name")
	log.Info("  - GET /v1/products/:name/value")
	log.Info("  - GET /v1/products/:name/stats")
	log.Info("  - GET /v1/divisions")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Bottom products server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                     Server port (default: 8080)")
	fmt.Println("  PRODUCT_DIR              Directory of climatology records (default: ./data/products)")
	fmt.Println("  EXCLUSION_CONTOUR_PATH   Fall exclusion contour, GeoJSON, .npy or lon,lat text (optional)")
	fmt.Println("  LOG_LEVEL                Logging level (default: info)")
	fmt.Println("  CORS_ALLOWED_ORIGINS     Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                          Health check")
	fmt.Println("  GET /v1/products                     List products")
	fmt.Println("  GET /v1/products/:name               Product metadata and bottom field")
	fmt.Println("  GET /v1/products/:name/value         Bottom value at lat, lon")
	fmt.Println("  GET /v1/products/:name/stats         Statistics over NAFO divisions")
	fmt.Println("  GET /v1/divisions                    List NAFO divisions")
	fmt.Println()
}
