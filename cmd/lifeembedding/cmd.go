package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/store/postgres"
)

var (
	log *logrus.Logger

	cfgFile       string
	showVersion   bool
	dumpConfig    bool
	generateToken bool
	fixturePath   string
	outputPath    string
)

var cmd = &cobra.Command{
	Use:   "lifeembedding",
	Short: "lifeembedding places biographies in a 3D map of notable lives",
	Run:   func(cmd *cobra.Command, args []string) { run(cmd.Context()) },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Run:   func(cmd *cobra.Command, args []string) { run(cmd.Context()) },
}

var embedCorpusCmd = &cobra.Command{
	Use:   "embed-corpus",
	Short: "Narrate and embed every corpus person and store the vectors",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := embedCorpus(cmd.Context(), cfg, outputPath); err != nil {
			log.Fatalf("Corpus embedding failed: %v", err)
		}
	},
}

var projectCmd = &cobra.Command{
	Use:     "project <request.json>",
	Short:   "Project a biography read from a JSON file and print the result",
	Example: "lifeembedding project ada.json",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := projectFile(cmd.Context(), cfg, args[0], os.Stdout); err != nil {
			log.Fatalf("Projection failed: %v", err)
		}
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test utilities",
}

var createFixturesCmd = &cobra.Command{
	Use:   "create-fixtures",
	Short: "Create fixtures for testing",
	Run: func(cmd *cobra.Command, args []string) {
		fixtureCount, _ := cmd.Flags().GetInt("count")
		outputDir, _ := cmd.Flags().GetString("outputDir")
		if err := postgres.GenerateFixtureData(fixtureCount, outputDir); err != nil {
			log.Fatalf("Failed to create fixtures: %v", err)
		}
		fmt.Println("Fixtures created successfully.")
	},
}

var loadFixturesCmd = &cobra.Command{
	Use:   "load-fixtures",
	Short: "Load fixtures for testing",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		db, err := postgres.NewPostgresConn(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v\n", err)
		}
		defer db.Close()
		err = postgres.LoadFixtures(cmd.Context(), cfg, db, fixturePath)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v\n", err)
		}
		fmt.Println("Fixtures loaded successfully.")
	},
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for the configuration file",
	Example: "lifeembedding json-schema > config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	},
}

func init() {
	testCmd.AddCommand(createFixturesCmd)
	testCmd.AddCommand(loadFixturesCmd)
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(embedCorpusCmd)
	cmd.AddCommand(projectCmd)
	cmd.AddCommand(testCmd)
	cmd.AddCommand(dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		BoolVarP(&generateToken, "generate-token", "g", false, "generate a new JWT token")

	embedCorpusCmd.Flags().
		StringVarP(&outputPath, "output", "o", "", "also write the embedding records to this JSON file")

	createFixturesCmd.Flags().Int("count", 100, "Number of persons to generate")
	createFixturesCmd.Flags().String("outputDir", "./test_data", "Path to output fixtures")
	loadFixturesCmd.Flags().
		StringVarP(&fixturePath, "fixturePath", "f", "./test_data", "Path containing fixtures to load")
}

// loadConfig loads the config and applies the CLI options that exit early.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring lifeembedding: %s", err)
	}
	handleCLIOptions(cfg)
	config.SetLogLevel(cfg)
	return cfg
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
