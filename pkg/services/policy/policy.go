package policy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// Evaluate decides whether an approved review may merge its pull request.
// Every gate must pass: auto-merge enabled, review approved, overall risk at
// or below the configured ceiling, the branch matching a prefix or regex, and
// the author appearing in the allowed logins. An empty filter matches
// everything; a non-empty one must match on its own. The returned reason is
// what lands in the comment and the report, so it names the gate that decided.
func Evaluate(ctx context.Context, doc *domain.ReviewDocument, cfg domain.AutoMergeConfig, pr *domain.PullRequestContext) domain.Decision {
	if !cfg.Enabled {
		return domain.Hold("disabled in repo config")
	}
	if !doc.Approved {
		return domain.Hold("review not approved")
	}

	matched, reason := matchRules(ctx, cfg, pr)
	if !matched {
		return domain.Hold(reason)
	}

	// The risk ceiling is a deliberate override: even an approved, rule-matched
	// review is held when the assessed risk is too high to merge unattended.
	ceiling := cfg.MaxRisk
	if ceiling == "" {
		ceiling = domain.RiskMedium
	}
	if doc.OverallRisk.Rank() > ceiling.Rank() {
		return domain.Hold(fmt.Sprintf("overall risk %s exceeds merge ceiling %s", doc.OverallRisk, ceiling))
	}

	return domain.Merge(reason)
}

func matchRules(ctx context.Context, cfg domain.AutoMergeConfig, pr *domain.PullRequestContext) (bool, string) {
	hasBranchRules := len(cfg.BranchPrefixes) > 0 || len(cfg.BranchRegexes) > 0
	hasAuthorRules := len(cfg.AuthorLogins) > 0
	if !hasBranchRules && !hasAuthorRules {
		return true, "enabled for all PRs"
	}

	branch := ""
	author := ""
	if pr != nil {
		branch = strings.TrimSpace(pr.Branch)
		author = strings.TrimSpace(pr.Author)
	}

	var matches []string

	branchOK := !hasBranchRules
	for _, prefix := range cfg.BranchPrefixes {
		if prefix != "" && strings.HasPrefix(branch, prefix) {
			branchOK = true
			matches = append(matches, fmt.Sprintf("branch prefix '%s'", prefix))
		}
	}

	for _, pattern := range cfg.BranchRegexes {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Str("pattern", pattern).Err(err).Msg("invalid auto-merge branch regex")
			continue
		}
		if re.MatchString(branch) {
			branchOK = true
			matches = append(matches, fmt.Sprintf("branch regex '%s'", pattern))
		}
	}

	authorOK := !hasAuthorRules
	for _, login := range cfg.AuthorLogins {
		if author != "" && author == login {
			authorOK = true
			matches = append(matches, fmt.Sprintf("author '%s'", author))
			break
		}
	}

	if branchOK && authorOK {
		return true, strings.Join(matches, "; ")
	}

	var detail []string
	if !branchOK && branch != "" {
		detail = append(detail, fmt.Sprintf("branch '%s'", branch))
	}
	if !authorOK && author != "" {
		detail = append(detail, fmt.Sprintf("author '%s'", author))
	}
	if len(detail) > 0 {
		return false, "no rules matched for " + strings.Join(detail, ", ")
	}
	return false, "no rules matched"
}
