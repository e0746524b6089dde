package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/annotator"
	"github.com/amosWeiskopf/corpuscrawl/pkg/store"
)

// annotatedRecord is a page record with its full annotation attached
type annotatedRecord struct {
	models.PageRecord
	NLP annotator.Document `json:"nlp"`
}

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [CORPUS]",
		Short: "Extract entities, relationships and triplets from a stored corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnnotate,
	}
	cmd.Flags().String("output", "annotated_data.json", "Output file for the annotated corpus")
	return cmd
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	records, err := store.LoadJSON(args[0])
	if err != nil {
		return err
	}

	a := annotator.NewPatternAnnotator()
	annotated := make([]annotatedRecord, 0, len(records))
	triplets := 0
	for _, rec := range records {
		doc := a.Process(rec.Content)
		triplets += doc.TripletCount
		annotated = append(annotated, annotatedRecord{PageRecord: rec, NLP: doc})
	}

	data, err := json.MarshalIndent(annotated, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}
	if err := store.WriteFileAtomic(output, data); err != nil {
		return fmt.Errorf("failed to write annotations: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Annotated %d pages (%d triplets); saved to %s\n", len(annotated), triplets, output)
	return nil
}
