package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vesselworks/vesseltrace/pkg/cost"
	"github.com/vesselworks/vesseltrace/pkg/engine"
	"github.com/vesselworks/vesseltrace/pkg/store"
	"gopkg.in/yaml.v3"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Batch import test records from a YAML file",
	Long: `Import submits every test record in the given YAML file through the
workflow engine. Records failing validation are logged and skipped;
the import continues with the remaining records.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "",
		"YAML file with test records to import")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(importCmd)
}

// importFile is the on-disk batch format.
type importFile struct {
	Tests []importTest `yaml:"tests"`
}

// importTest is one test submission in a batch file.
type importTest struct {
	SerialNumber    string  `yaml:"serial_number"`
	AssetType       string  `yaml:"asset_type"`
	Material        string  `yaml:"material"`
	NominalCapacity float64 `yaml:"nominal_capacity"`
	BatchNumber     string  `yaml:"batch_number"`

	TestType        string  `yaml:"test_type"`
	TestDate        string  `yaml:"test_date"`
	PressureBar     float64 `yaml:"pressure_bar"`
	DurationMinutes float64 `yaml:"duration_minutes"`
	AmbientTempC    float64 `yaml:"ambient_temp_c"`
	Equipment       string  `yaml:"equipment"`
	Deviation       float64 `yaml:"deviation"`

	Executor     string `yaml:"executor"`
	Verifier     string `yaml:"verifier"`
	Vehicle      string `yaml:"vehicle"`
	Installation string `yaml:"installation"`

	Result         string         `yaml:"result"`
	RetestRequired bool           `yaml:"retest_required"`
	Notes          string         `yaml:"notes"`
	Defects        []importDefect `yaml:"defects"`
}

// importDefect is one defect entry in a batch file.
type importDefect struct {
	ErrorType    string  `yaml:"error_type"`
	Location     string  `yaml:"location"`
	SizeMM       float64 `yaml:"size_mm"`
	RepairMethod string  `yaml:"repair_method"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(importFilePath)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	var batch importFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parsing import file: %w", err)
	}

	ctx := context.Background()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() { _ = st.Stop() }()

	eng := engine.New(log, st, st, cost.Rates{
		LaborPerHour: cfg.Rates.LaborPerHour,
		QCPerHour:    cfg.Rates.QCPerHour,
	})

	var imported, skipped int

	for i, rec := range batch.Tests {
		t, err := rec.toRecord()
		if err != nil {
			log.WithError(err).WithField("index", i).
				Warn("Skipping malformed record")

			skipped++

			continue
		}

		if _, err := eng.SubmitTest(ctx, t); err != nil {
			log.WithError(err).WithField("index", i).
				WithField("serial", rec.SerialNumber).
				Warn("Skipping invalid record")

			skipped++

			continue
		}

		imported++
	}

	log.WithField("imported", imported).
		WithField("skipped", skipped).
		Info("Import finished")

	return nil
}

// toRecord converts a batch entry into a test record submission.
func (t importTest) toRecord() (*store.TestRecord, error) {
	testDate := time.Now().UTC()

	if t.TestDate != "" {
		parsed, err := time.Parse("2006-01-02", t.TestDate)
		if err != nil {
			return nil, fmt.Errorf("parsing test_date %q: %w", t.TestDate, err)
		}

		testDate = parsed
	}

	defects := make([]store.Defect, 0, len(t.Defects))
	for _, d := range t.Defects {
		defects = append(defects, store.Defect{
			ErrorType:    d.ErrorType,
			Location:     d.Location,
			SizeMM:       d.SizeMM,
			RepairMethod: d.RepairMethod,
		})
	}

	return &store.TestRecord{
		Asset: store.Asset{
			SerialNumber:    t.SerialNumber,
			Type:            t.AssetType,
			Material:        t.Material,
			NominalCapacity: t.NominalCapacity,
			BatchNumber:     t.BatchNumber,
		},
		Personnel: store.Personnel{
			Executor: t.Executor,
			Verifier: t.Verifier,
		},
		Context: store.TestContext{
			Vehicle:      t.Vehicle,
			Installation: t.Installation,
		},
		Params: store.TestParams{
			TestType:        t.TestType,
			TestDate:        testDate,
			PressureBar:     t.PressureBar,
			DurationMinutes: t.DurationMinutes,
			AmbientTempC:    t.AmbientTempC,
			Equipment:       t.Equipment,
			Deviation:       t.Deviation,
		},
		Defects:        defects,
		Result:         store.Result(t.Result),
		RetestRequired: t.RetestRequired,
		Notes:          t.Notes,
	}, nil
}
