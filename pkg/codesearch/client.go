// Package codesearch looks up Salesforce metadata in GitHub repositories.
package codesearch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careconnect-ai/insights/pkg/gateway/httpclient"
	"github.com/careconnect-ai/insights/pkg/remote"
	"golang.org/x/oauth2"
)

// MissingInputMessage is shown when a search lacks a term or repository.
const MissingInputMessage = "Please enter both search term and repository."

var ErrMissingInput = errors.New("codesearch: search term and repository are required")

type Result struct {
	SHA        string `json:"sha"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	HTMLURL    string `json:"htmlUrl"`
	RepoName   string `json:"repoName"`
	RepoURL    string `json:"repoUrl"`
	Owner      string `json:"owner"`
	OwnerURL   string `json:"ownerUrl"`
	FileType   string `json:"fileType"`
	BadgeClass string `json:"badgeClass"`
}

type Results struct {
	TotalCount int      `json:"totalCount"`
	Items      []Result `json:"items"`
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		SHA        string `json:"sha"`
		Name       string `json:"name"`
		Path       string `json:"path"`
		HTMLURL    string `json:"html_url"`
		Repository struct {
			FullName string `json:"full_name"`
			HTMLURL  string `json:"html_url"`
			Owner    struct {
				Login   string `json:"login"`
				HTMLURL string `json:"html_url"`
			} `json:"owner"`
		} `json:"repository"`
	} `json:"items"`
}

type Client struct {
	api *remote.Client
}

// NewClient searches through apiURL. A non-empty token is sent as a bearer
// token, which GitHub requires for code search.
func NewClient(ctx context.Context, apiURL, token string, timeout time.Duration) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpclient.New(timeout)), ts)
		hc.Timeout = timeout
	} else {
		hc = httpclient.New(timeout)
	}
	return &Client{api: remote.NewClient(apiURL, hc)}
}

func (c *Client) Search(ctx context.Context, term, repository string) (Results, error) {
	term, repository = strings.TrimSpace(term), strings.TrimSpace(repository)
	if term == "" || repository == "" {
		return Results{}, ErrMissingInput
	}

	q := url.Values{"q": {term + " repo:" + repository}}
	var resp searchResponse
	if err := c.api.Get(ctx, "/search/code?"+q.Encode(), &resp); err != nil {
		return Results{}, err
	}

	out := Results{TotalCount: resp.TotalCount, Items: make([]Result, 0, len(resp.Items))}
	for _, item := range resp.Items {
		fileType := Classify(item.Name, item.Path)
		out.Items = append(out.Items, Result{
			SHA:        item.SHA,
			Name:       item.Name,
			Path:       item.Path,
			HTMLURL:    item.HTMLURL,
			RepoName:   item.Repository.FullName,
			RepoURL:    item.Repository.HTMLURL,
			Owner:      item.Repository.Owner.Login,
			OwnerURL:   item.Repository.Owner.HTMLURL,
			FileType:   fileType,
			BadgeClass: BadgeClass(fileType),
		})
	}
	return out, nil
}
