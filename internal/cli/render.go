package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/cyverse-de/terrain-cli/internal/api"
	"github.com/cyverse-de/terrain-cli/internal/quota"
)

const barWidth = 20

const reset = "\033[0m"

// Printer writes command results. JSON takes precedence over Color.
type Printer struct {
	Out   io.Writer
	JSON  bool
	Color bool
}

// NewPrinter writes to w, with color when w is a terminal.
func NewPrinter(w io.Writer, jsonMode bool) *Printer {
	return &Printer{Out: w, JSON: jsonMode, Color: isTTY(w)}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func color(pct float64) string {
	switch {
	case pct >= 80:
		return "\033[31m" // red
	case pct >= 60:
		return "\033[33m" // yellow
	default:
		return "\033[32m" // green
	}
}

func bar(pct float64) string {
	filled := int(math.Round(pct / 100 * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Out, string(data))
	return err
}

// Plans lists each plan with its default quotas sorted by resource type.
func (p *Printer) Plans(plans []api.Plan) error {
	if p.JSON {
		return p.printJSON(plans)
	}
	for _, plan := range plans {
		fmt.Fprintf(p.Out, "%s:\n", plan.Name)
		defaults := append([]api.QuotaDefault(nil), plan.PlanQuotaDefaults...)
		sort.Slice(defaults, func(i, j int) bool {
			return defaults[i].ResourceType.Name < defaults[j].ResourceType.Name
		})
		for _, qd := range defaults {
			fmt.Fprintf(p.Out, "    %s: %s\n", qd.ResourceType.Name, quota.Format(qd.QuotaValue, qd.ResourceType.Unit))
		}
	}
	return nil
}

func (p *Printer) ResourceTypes(types []api.ResourceType) error {
	if p.JSON {
		return p.printJSON(types)
	}
	sorted := append([]api.ResourceType(nil), types...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, rt := range sorted {
		fmt.Fprintf(p.Out, "%s (%s)\n", rt.Name, rt.Unit)
	}
	return nil
}

// Subscription prints the plan, its validity window, the quotas and the
// usages. On a terminal each quota also gets a usage bar.
func (p *Printer) Subscription(sub *api.Subscription) error {
	if p.JSON {
		return p.printJSON(sub)
	}

	usages := make(map[string]float64, len(sub.Usages))
	for _, u := range sub.Usages {
		usages[u.ResourceType.Name] = u.Usage
	}

	fmt.Fprintln(p.Out, "Effective Starting:", sub.EffectiveStartDate)
	fmt.Fprintln(p.Out, "Expires At:", sub.EffectiveEndDate)
	fmt.Fprintln(p.Out, "Plan:", sub.Plan.Name)

	fmt.Fprintln(p.Out, "Quotas:")
	quotas := append([]api.Quota(nil), sub.Quotas...)
	sort.Slice(quotas, func(i, j int) bool { return quotas[i].ResourceType.Name < quotas[j].ResourceType.Name })
	for _, q := range quotas {
		line := fmt.Sprintf("    %s: %s", q.ResourceType.Name, quota.Format(q.Quota, q.ResourceType.Unit))
		if used, ok := usages[q.ResourceType.Name]; ok && p.Color && q.Quota > 0 {
			pct := used / q.Quota * 100
			line += fmt.Sprintf("  %s%s%s %3.0f%%", color(pct), bar(pct), reset, pct)
		}
		fmt.Fprintln(p.Out, line)
	}

	fmt.Fprintln(p.Out, "Usages:")
	sorted := append([]api.Usage(nil), sub.Usages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourceType.Name < sorted[j].ResourceType.Name })
	for _, u := range sorted {
		fmt.Fprintf(p.Out, "    %s: %s\n", u.ResourceType.Name, quota.Format(u.Usage, u.ResourceType.Unit))
	}
	return nil
}

type Identity struct {
	Environment string     `json:"environment"`
	Username    string     `json:"username,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (p *Printer) Identity(id Identity) error {
	if p.JSON {
		return p.printJSON(id)
	}
	username := id.Username
	if username == "" {
		username = "(unknown)"
	}
	fmt.Fprintf(p.Out, "%s on %s\n", username, id.Environment)
	if id.ExpiresAt != nil {
		fmt.Fprintf(p.Out, "credential expires in %s\n", formatDuration(time.Until(*id.ExpiresAt)))
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "now"
	}
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
