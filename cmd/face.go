package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Face descriptor tools",
}

var faceMatchCmd = &cobra.Command{
	Use:   "match <descriptor-file>",
	Short: "Find the registered user closest to a descriptor",
	Long: `Reads a 128-value face descriptor (a JSON or YAML array) and reports the
nearest registered face, its distance and whether it is below the threshold.
The configured FACE_MATCH_MODE is used unless --match-mode is given.

Examples:
  securebase face match probe.json
  securebase face match probe.json --threshold 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFaceMatch,
}

func init() {
	rootCmd.AddCommand(faceCmd)
	faceCmd.AddCommand(faceMatchCmd)

	faceMatchCmd.Flags().Float64("threshold", 0, "Distance threshold (default FACE_MATCH_THRESHOLD or 0.6)")
	faceMatchCmd.Flags().String("match-mode", "", "Face match strategy: scan, pgvector or hnsw")
	faceMatchCmd.Flags().Bool("json", false, "Output as JSON")
}

// faceMatchResult is the --json output of face match.
type faceMatchResult struct {
	Found     bool    `json:"found"`
	UserID    string  `json:"user_id,omitempty"`
	Email     string  `json:"email,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
	Threshold float64 `json:"threshold"`
	IsMatch   bool    `json:"is_match"`
	Mode      string  `json:"mode"`
}

// readDescriptorFile parses a descriptor array. JSON input parses as YAML too.
func readDescriptorFile(path string) (facematch.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var values []float64
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	d, err := facematch.Validate(values)
	if err != nil {
		return nil, fmt.Errorf("descriptor in %s: %w", path, err)
	}
	return d, nil
}

func runFaceMatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cmd.Flags().Changed("threshold") {
		cfg.Face.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if cmd.Flags().Changed("match-mode") {
		cfg.Face.Mode = mustGetString(cmd, "match-mode")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	query, err := readDescriptorFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	faces, err := database.GetFaceMatcher(ctx)
	if err != nil {
		return err
	}
	match, err := faces.BestFaceMatch(ctx, query, cfg.Face.Threshold)
	if err != nil {
		return fmt.Errorf("face match failed: %w", err)
	}

	result := faceMatchResult{Threshold: cfg.Face.Threshold, Mode: cfg.Face.Mode}
	if match != nil {
		result.Found = true
		result.UserID = match.UserID
		result.Distance = match.Distance
		result.IsMatch = match.IsMatch
		if u, err := b.users.GetByID(ctx, match.UserID); err == nil {
			result.Email = u.Email
		}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.Found {
		fmt.Println("No registered faces.")
		return nil
	}
	verdict := "REJECT"
	if result.IsMatch {
		verdict = "MATCH"
	}
	fmt.Printf("Nearest:   %s (%s)\n", result.Email, result.UserID)
	fmt.Printf("Distance:  %.4f\n", result.Distance)
	fmt.Printf("Threshold: %.4f (%s)\n", result.Threshold, result.Mode)
	fmt.Printf("Result:    %s\n", verdict)
	return nil
}
