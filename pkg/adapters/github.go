package adapters

import (
	"github.com/google/go-github/v68/github"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

func MapIssueCommentGithubToDomain(c *github.IssueComment) domain.Comment {
	return domain.Comment{
		ID:        c.GetID(),
		Author:    c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func MapLabelDomainToGithub(l domain.Label) *github.Label {
	return &github.Label{
		Name:        github.Ptr(l.Name),
		Color:       github.Ptr(l.Color),
		Description: github.Ptr(l.Description),
	}
}

func MapPullRequestGithubToDomain(pr *github.PullRequest) domain.PullRequestContext {
	sameRepo := pr.GetHead().GetRepo().GetFullName() == pr.GetBase().GetRepo().GetFullName()
	return domain.PullRequestContext{
		Number:   pr.GetNumber(),
		Branch:   pr.GetHead().GetRef(),
		Author:   pr.GetUser().GetLogin(),
		BaseSHA:  pr.GetBase().GetSHA(),
		HeadSHA:  pr.GetHead().GetSHA(),
		Merged:   pr.GetMerged(),
		SameRepo: sameRepo,
	}
}
