package postgres

import (
	"fmt"
	"strings"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// buildJobFilter returns the WHERE clause and its arguments for f.
// Placeholders start at $1.
func buildJobFilter(f domain.JobFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if status := f.EffectiveStatus(); status != "" {
		conds = append(conds, "status = "+arg(string(status)))
	} else {
		conds = append(conds, "status <> 'deleted'")
	}
	if f.EmployerID != "" {
		conds = append(conds, "employer_id = "+arg(f.EmployerID))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg(likePattern(s))
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR company ILIKE %s OR description ILIKE %s)", p, p, p))
	}
	if l := strings.TrimSpace(f.Location); l != "" {
		conds = append(conds, "location ILIKE "+arg(likePattern(l)))
	}
	if f.Type != "" {
		conds = append(conds, "type = "+arg(f.Type))
	}
	if f.Experience != "" {
		conds = append(conds, "experience = "+arg(f.Experience))
	}

	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring pattern with LIKE wildcards in s escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
