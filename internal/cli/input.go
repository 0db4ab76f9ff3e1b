// Package cli runs an interactive shell over the prefix filter for debugging and
// trying out prefixes in real time.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/cityserve/internal/utils"
	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/bastiangx/cityserve/pkg/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
)

// Shell commands; anything else is treated as a prefix.
const (
	cmdQuit  = ":q"
	cmdReset = ":reset"
	cmdStats = ":stats"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	nextStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	percentStyle = lipgloss.NewStyle().Faint(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9893a5", Dark: "#6e6a86"})
)

// InputHandler reads prefixes line by line and prints the breakdown of each.
type InputHandler struct {
	filterer  filter.Filterer
	in        io.Reader
	out       io.Writer
	maxPrefix int
	showStats bool
	requests  int
}

// NewInputHandler handles initialization of the InputHandler
func NewInputHandler(f filter.Filterer, in io.Reader, out io.Writer, maxPrefix int, showStats bool) *InputHandler {
	return &InputHandler{
		filterer:  f,
		in:        in,
		out:       out,
		maxPrefix: maxPrefix,
		showStats: showStats,
	}
}

// Start begins the interface loop. An empty line shows every city.
// It returns nil when the input ends or the user quits.
func (h *InputHandler) Start() error {
	fmt.Fprintln(h.out, "CityServe CLI")
	fmt.Fprintln(h.out, `type a prefix and press Enter, wrap it in quotes for an exact match, paste a #city= fragment to restore one (:q to exit):`)

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		// keep trailing spaces, they are part of the prefix
		line := strings.TrimRight(scanner.Text(), "\r\n")
		switch strings.TrimSpace(line) {
		case cmdQuit:
			return nil
		case cmdReset:
			h.filterer.Reset()
			fmt.Fprintln(h.out, "cache reset")
			continue
		case cmdStats:
			h.printStats()
			continue
		}
		if strings.HasPrefix(line, "#") {
			line = session.ParseFragment(line)
		}
		h.handleInput(line)
	}
}

func (h *InputHandler) handleInput(prefix string) {
	h.requests++
	if h.maxPrefix > 0 && utf8.RuneCountInString(prefix) > h.maxPrefix {
		log.Errorf("Prefix too long: %s...", utils.TruncateRunes(prefix, 20))
		return
	}

	res := h.filterer.Filter(prefix)
	log.Debug("filter", "prefix", res.Query.Prefix, "mode", res.Query.Mode, "reused", res.Reused)

	fmt.Fprintln(h.out, RenderBreakdown(res))
	if h.showStats {
		fmt.Fprintf(h.out, "%s of %s cities shown, took %v\n",
			utils.FormatWithCommas(len(res.Sample)), utils.FormatWithCommas(res.Total), res.Elapsed)
	}
}

func (h *InputHandler) printStats() {
	stats := h.filterer.Stats()
	fmt.Fprintf(h.out, "calls=%d scans=%d reuses=%d dataset=%s last=%q\n",
		stats.Calls, stats.Scans, stats.Reuses, utils.FormatWithCommas(stats.DatasetSize), h.filterer.LastPrefix())
}

// RenderBreakdown draws the begins-with table for a result.
func RenderBreakdown(res filter.Result) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Begins with", "Count").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, g := range res.Breakdown {
		t.Row(groupLabel(g), groupCount(g))
	}
	return t.Render()
}

// groupLabel shows exact groups in quotes and highlights the next character of
// partial ones.
func groupLabel(g filter.Group) string {
	switch {
	case g.Sentinel():
		return g.Prefix
	case g.Exact:
		return `"` + g.Prefix + `"`
	}
	runes := []rune(g.Prefix)
	if len(runes) == 0 {
		return g.Prefix
	}
	last := string(runes[len(runes)-1])
	return string(runes[:len(runes)-1]) + nextStyle.Render(utils.VisibleSpaces(last))
}

func groupCount(g filter.Group) string {
	if g.Sentinel() {
		return ""
	}
	return utils.FormatWithCommas(g.Count) + " " + percentStyle.Render("("+g.PercentString()+")")
}
