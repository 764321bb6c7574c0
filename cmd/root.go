package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blockshq/floortiler/internal/config"
	"github.com/blockshq/floortiler/internal/pdf"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/internal/tiler"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "floortiler [pdf]",
	Short: "Turn floor plan PDFs into Leaflet tile pyramids",
	Long: `floortiler rasterizes architectural floor plan PDFs, trims the
whitespace margins, and slices the result into a CRS.Simple tile pyramid
for Leaflet viewers. It also burns viewer annotations back into the
original PDF.

Examples:
  # Tile a local floor plan into ./tiles
  floortiler plan.pdf --output ./tiles

  # Tile at a lower render scale with 1024px tiles
  floortiler plan.pdf --scale 25 --tile-size 1024 -o ./tiles

  # Start the HTTP API
  floortiler serve --port 8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runProcess(cmd, args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.floortiler.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")

	rootCmd.Flags().StringP("output", "o", "tiles", "output directory for the tile set")
	rootCmd.Flags().Float64("scale", config.DefaultRenderScale, "render scale over the PDF's 72 DPI base")
	rootCmd.Flags().Int("max-dimension", config.DefaultMaxDimension, "maximum raster side length in pixels")
	rootCmd.Flags().IntP("tile-size", "t", 512, "tile edge length (128|256|512|1024)")
	rootCmd.Flags().Int("zoom-boost", config.DefaultZoomBoost, "extra zoom levels beyond the single-tile fit")
	rootCmd.Flags().Int("max-zoom-limit", config.DefaultMaxZoomLimit, "absolute maximum zoom ceiling")
	rootCmd.Flags().Int("min-zoom", 0, "lowest zoom level to generate")
	rootCmd.Flags().Int("max-zoom", -1, "pin the maximum zoom level (-1 for automatic)")

	viper.BindPFlag("PDF_SCALE", rootCmd.Flags().Lookup("scale"))
	viper.BindPFlag("MAX_DIMENSION", rootCmd.Flags().Lookup("max-dimension"))
	viper.BindPFlag("TILE_SIZE", rootCmd.Flags().Lookup("tile-size"))
	viper.BindPFlag("ZOOM_BOOST", rootCmd.Flags().Lookup("zoom-boost"))
	viper.BindPFlag("MAX_ZOOM_LIMIT", rootCmd.Flags().Lookup("max-zoom-limit"))
	viper.BindPFlag("MIN_ZOOM", rootCmd.Flags().Lookup("min-zoom"))
	viper.BindPFlag("FORCED_MAX_Z", rootCmd.Flags().Lookup("max-zoom"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".floortiler")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(viper.GetString("log-level")); err == nil {
		log.SetLevel(level)
	}
	return log
}

func runProcess(cmd *cobra.Command, pdfPath string) error {
	log := newLogger()

	cfg, err := config.LoadTiling(viper.GetViper(), log)
	if err != nil {
		return err
	}

	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pdfPath, err)
	}

	store, err := storage.NewFileStore(viper.GetString("output"))
	if err != nil {
		return err
	}

	pipeline := tiler.NewPipeline(pdf.NewRenderer(log), store, cfg, log)
	meta, err := pipeline.Process(context.Background(), pdfBytes, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tiled %s: id=%s zoom=%d..%d tiles=%d\n",
		pdfPath, meta.FloorplanID, meta.MinZoom, meta.MaxZoom, meta.TotalTiles)
	return nil
}
