package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the OCI bundles of the active catalog",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print the catalog as JSON")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat := loadCatalog(newLogger())
	bundles := cat.Bundles()

	if catalogJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundles)
	}

	for _, b := range bundles {
		fmt.Printf("%s - %s\n", b.DisplayCode(), b.Name)
		for _, it := range b.Mandatory {
			fmt.Printf("    OBG %s - %s\n", it.Code, it.Description)
		}
		for _, it := range b.Optional {
			fmt.Printf("    FAC %s - %s\n", it.Code, it.Description)
		}
	}
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("%d bundles\n", cat.Len())
	return nil
}
