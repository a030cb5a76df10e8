package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

var (
	evaluateFile string
	evaluateJSON bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the decision pipeline over an FNOL payload",
	Long: `Evaluate reads an FNOL payload, either bare or wrapped as {"fnol": ...},
and runs the decision pipeline against the configured database. Nothing is
persisted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fnol, err := readFNOL(evaluateFile)
		if err != nil {
			return err
		}

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := svc.Evaluate(cmd.Context(), fnol)
		if err != nil {
			return err
		}

		if evaluateJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateFile, "file", "f", "", "FNOL JSON file (- for stdin)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the raw evaluation result")
	evaluateCmd.MarkFlagRequired("file")
}

func readFNOL(path string) (*domain.FNOL, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading payload: %w", err)
	}
	return parseFNOL(data)
}

// parseFNOL accepts both {"fnol": {...}} and a bare FNOL object.
func parseFNOL(data []byte) (*domain.FNOL, error) {
	var wrapped struct {
		FNOL *domain.FNOL `json:"fnol"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("error parsing payload: %w", err)
	}
	if wrapped.FNOL != nil {
		return wrapped.FNOL, nil
	}

	var fnol domain.FNOL
	if err := json.Unmarshal(data, &fnol); err != nil {
		return nil, fmt.Errorf("error parsing payload: %w", err)
	}
	return &fnol, nil
}

func decisionColor(decision string) *color.Color {
	switch decision {
	case domain.DecisionAutoApprove:
		return color.New(color.FgGreen, color.Bold)
	case domain.DecisionManualReview:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printResult(w io.Writer, r *domain.EvaluationResult) {
	label := color.New(color.FgCyan)

	label.Fprint(w, "Decision:    ")
	decisionColor(r.Decision).Fprintln(w, r.Decision)
	label.Fprint(w, "Status:      ")
	fmt.Fprintln(w, r.ClaimStatus)
	if r.Reason != "" {
		label.Fprint(w, "Reason:      ")
		fmt.Fprintln(w, r.Reason)
	}
	label.Fprint(w, "Fraud band:  ")
	fmt.Fprintln(w, r.FraudScore)
	label.Fprint(w, "Score:       ")
	fmt.Fprintf(w, "%.2f (threshold %.2f, confidence %d)\n", r.EvaluationScore, r.Threshold, r.DamageConfidence)

	tier := "-"
	if r.ClaimType != nil {
		tier = *r.ClaimType
	}
	label.Fprint(w, "Claim type:  ")
	fmt.Fprintf(w, "%s (estimated %.2f)\n", tier, r.EstimatedAmount)

	if len(r.FraudRuleResults) == 0 {
		return
	}
	fmt.Fprintln(w)
	label.Fprintln(w, "Fraud checks:")
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	for _, fr := range r.FraudRuleResults {
		if fr.Passed {
			pass.Fprintf(w, "  PASS  ")
		} else {
			fail.Fprintf(w, "  FAIL  ")
		}
		fmt.Fprintf(w, "%-24s %s\n", fr.RuleType, fr.RuleDescription)
	}
}
