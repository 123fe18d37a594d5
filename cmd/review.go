package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/queue"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List pending candidates and record reviewer decisions",
}

var (
	reviewListSource     string
	reviewListConfidence string
	reviewListLimit      int
	reviewListFormat     string
)

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue candidates without an active decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		snap, err := queue.Load(cfg.Queue.SnapshotPath)
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		latest, err := st.LatestDecisions(ctx)
		if err != nil {
			return err
		}
		decided := make(map[string]model.Verdict, len(latest))
		for id, d := range latest {
			decided[id] = d.Verdict
		}

		pending := snap.ListPending(decided, queue.Filter{
			Source:        model.Source(reviewListSource),
			MinConfidence: model.Confidence(reviewListConfidence),
			Limit:         reviewListLimit,
		})
		return renderSyntheses(cmd.OutOrStdout(), pending, reviewListFormat)
	},
}

var (
	reviewDecideID       string
	reviewDecideAccept   bool
	reviewDecideReject   bool
	reviewDecideReviewer string
	reviewDecideComment  string
)

var reviewDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record an accept or reject for one candidate",
	Long:  "Appends a decision for the given candidate id. A decision that repeats the active verdict and comment is a no-op; a changed one supersedes it while keeping the old row as history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if reviewDecideAccept == reviewDecideReject {
			return fmt.Errorf("exactly one of --accept or --reject is required")
		}
		if reviewDecideReviewer == "" {
			return fmt.Errorf("--reviewer is required")
		}
		verdict := model.VerdictAccepted
		if reviewDecideReject {
			verdict = model.VerdictRejected
		}

		snap, err := queue.Load(cfg.Queue.SnapshotPath)
		if err != nil {
			return err
		}
		if _, ok := snap.Candidate(reviewDecideID); !ok {
			return fmt.Errorf("unknown candidate id %q", reviewDecideID)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		decision := model.Decision{
			CandidateID: reviewDecideID,
			Verdict:     verdict,
			Reviewer:    reviewDecideReviewer,
			Comment:     reviewDecideComment,
			DecidedAt:   time.Now().UTC(),
		}

		history, err := st.DecisionHistory(ctx, reviewDecideID)
		if err != nil {
			return err
		}
		var prev *model.Decision
		if len(history) > 0 {
			prev = &history[len(history)-1]
		}
		if !decision.Supersedes(prev) {
			fmt.Fprintf(cmd.OutOrStdout(), "Candidate %s already %s, nothing to do\n", reviewDecideID, prev.Verdict)
			return nil
		}

		if err := st.AppendDecision(ctx, decision); err != nil {
			return err
		}
		zap.L().Info("decision recorded",
			zap.String("candidate_id", reviewDecideID),
			zap.String("verdict", string(verdict)),
			zap.String("reviewer", reviewDecideReviewer))
		fmt.Fprintf(cmd.OutOrStdout(), "Candidate %s %s by %s\n", reviewDecideID, verdict, reviewDecideReviewer)
		return nil
	},
}

// renderSyntheses writes pending queue entries in the requested format.
func renderSyntheses(w io.Writer, pending []queue.Synthesis, format string) error {
	switch format {
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tCONF\tSOURCE\tPAGE\tSYNTHESIS")
		for _, syn := range pending {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				syn.CandidateID, syn.Type, syn.Confidence, syn.Source, syn.Page, syn.Text)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pending)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(pending)
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func init() {
	reviewListCmd.Flags().StringVar(&reviewListSource, "source", "", "filter by source (FUENTES_IX or CATCOM)")
	reviewListCmd.Flags().StringVar(&reviewListConfidence, "confidence", "", "minimum confidence (low, medium or high)")
	reviewListCmd.Flags().IntVar(&reviewListLimit, "limit", 0, "maximum entries to list (0 for all)")
	reviewListCmd.Flags().StringVar(&reviewListFormat, "format", "table", "output format: table, json or yaml")

	reviewDecideCmd.Flags().StringVar(&reviewDecideID, "id", "", "candidate id")
	reviewDecideCmd.Flags().BoolVar(&reviewDecideAccept, "accept", false, "accept the candidate")
	reviewDecideCmd.Flags().BoolVar(&reviewDecideReject, "reject", false, "reject the candidate")
	reviewDecideCmd.Flags().StringVar(&reviewDecideReviewer, "reviewer", "", "reviewer name")
	reviewDecideCmd.Flags().StringVar(&reviewDecideComment, "comment", "", "optional comment")
	_ = reviewDecideCmd.MarkFlagRequired("id")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewDecideCmd)
	rootCmd.AddCommand(reviewCmd)
}
