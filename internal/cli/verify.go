package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docverify/internal/document/decode"
	"docverify/internal/document/models"
	"docverify/internal/document/service"
)

// ErrNotAuthentic is returned by verify --strict for a rejected document.
var ErrNotAuthentic = errors.New("document is not authentic")

// NewVerifyCmd runs the verification pipeline on a local image and prints
// the record as JSON. Nothing is persisted or audited.
func NewVerifyCmd() *cobra.Command {
	var (
		documentType string
		threshold    float64
		aggregation  string
		sequential   bool
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "verify <image>",
		Short: "Verify a document image locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(args[0])
			if err != nil {
				return err
			}
			aggregator, err := service.NewAggregator(aggregation)
			if err != nil {
				return err
			}
			svc := service.New(
				service.WithAggregator(aggregator),
				service.WithThreshold(threshold),
				service.WithParallel(!sequential),
			)

			record, err := svc.Verify(cmd.Context(), img, documentType)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), record); err != nil {
				return err
			}
			if strict && !record.IsAuthentic {
				return ErrNotAuthentic
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&documentType, "type", "t", string(models.DocumentGeneric), "Document type (passport|id_card|driving_license|generic)")
	cmd.Flags().Float64Var(&threshold, "threshold", service.DefaultThreshold, "Minimum confidence for an authentic verdict")
	cmd.Flags().StringVar(&aggregation, "aggregation", "mean", "Confidence aggregation (mean|weighted)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Run checks one after another")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the document is not authentic")
	return cmd
}

// NewDetectEdgesCmd prints the document outline found in a local image.
func NewDetectEdgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-edges <image>",
		Short: "Locate the document outline in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(args[0])
			if err != nil {
				return err
			}
			detection, err := service.New().DetectEdges(cmd.Context(), img)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), detection)
		},
	}
}

func readImage(path string) (models.PixelImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.PixelImage{}, err
	}
	defer f.Close()

	img, _, err := decode.Reader(f)
	if err != nil {
		return models.PixelImage{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
