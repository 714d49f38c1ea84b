package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.azmp.io/bottom-fields/internal/adapter/store/climatology"
	"go.azmp.io/bottom-fields/internal/config"
	httpHandler "go.azmp.io/bottom-fields/internal/http"
	"go.azmp.io/bottom-fields/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the records of a product directory over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := config.ServerFromViper(Cfg)
		region, err := newRegion(srv.Exclusion, log)
		if err != nil {
			return err
		}
		catalog := climatology.NewCatalog(srv.ProductDir, climatology.NewNetCDFStore())
		router := httpHandler.SetupRouter(usecase.NewProductService(catalog, region))

		addr := fmt.Sprintf(":%s", srv.Port)
		log.WithField("dir", srv.ProductDir).Info("Serving products")
		log.Infof("Server listening on %s", addr)
		return router.Run(addr)
	},
}
