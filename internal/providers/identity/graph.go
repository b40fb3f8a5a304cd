package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/utils"
)

// Graph reads directory objects from Microsoft Graph with the user's delegated token.
type Graph struct {
	http *resty.Client
	log  *logrus.Logger
}

func NewGraph(baseURL string, timeout time.Duration, log *logrus.Logger) *Graph {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Graph{
		http: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
		log:  log,
	}
}

type memberOfPage struct {
	Value []struct {
		ODataType   string `json:"@odata.type"`
		DisplayName string `json:"displayName"`
	} `json:"value"`
}

// DepartmentName returns the display name of the second membership entry, or the first when the
// user belongs to a single one.
func (g *Graph) DepartmentName(ctx context.Context, uniqueID, accessToken string) (string, error) {
	const op = "Graph.DepartmentName"
	var page memberOfPage
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&page).
		SetPathParam("id", uniqueID).
		Get("/users/{id}/memberOf")
	if err != nil {
		g.log.WithField("op", op).WithError(err).Warn("graph unreachable")
		return "", utils.Network(op, err)
	}
	if !resp.IsSuccess() {
		g.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode()}).Warn("graph call failed")
		return "", utils.FromStatus(op, resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}

	switch {
	case len(page.Value) > 1:
		if name := page.Value[1].DisplayName; name != "" {
			return name, nil
		}
	case len(page.Value) == 1:
		if name := page.Value[0].DisplayName; name != "" {
			return name, nil
		}
	}
	return "", utils.E(utils.CodeNotFound, op, "no group membership", nil)
}
