package ui

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/redmonkez12/diary-api/internal/pat"
)

// PrintAccessToken prints a freshly issued federated token
func PrintAccessToken(w io.Writer, token string, expiresAt time.Time) {
	fmt.Fprintln(w, titleStyle.Render("Access token"))
	fmt.Fprintln(w, secretStyle.Render(token))
	fmt.Fprintln(w, subtleStyle.Render("Expires "+expiresAt.UTC().Format(time.RFC3339)))
}

// PrintCreatedPAT prints a new personal access token and its one-time warning
func PrintCreatedPAT(w io.Writer, result *pat.CreateResult) {
	fmt.Fprintln(w, successStyle.Render("Personal access token created"))
	fmt.Fprintln(w, secretStyle.Render(result.Token))
	fmt.Fprintf(w, "  id:     %s\n", result.ID)
	fmt.Fprintf(w, "  prefix: %s\n", result.TokenPrefix)
	fmt.Fprintln(w, warningStyle.Render(result.Warning))
}

// PrintPATs prints token summaries as a table
func PrintPATs(w io.Writer, tokens []pat.Summary) {
	if len(tokens) == 0 {
		fmt.Fprintln(w, subtleStyle.Render("No tokens."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPREFIX\tCREATED\tACTIVE")
	for _, t := range tokens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", t.ID, t.TokenPrefix, t.CreatedAt.UTC().Format(time.RFC3339), t.IsActive)
	}
	tw.Flush()
}

// PrintSuccess prints a success line
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

// PrintInfo prints a muted line
func PrintInfo(w io.Writer, msg string) {
	fmt.Fprintln(w, subtleStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+msg))
}
