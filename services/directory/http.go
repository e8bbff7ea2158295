// Package directorysvc resolves user contact details from the identity
// platform, which owns accounts and profiles.
package directorysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/identity"
)

const requestTimeout = 5 * time.Second

type httpDirectory struct {
	baseURL string
	client  *http.Client
}

var _ identity.Directory = (*httpDirectory)(nil)

func NewHTTPDirectory(conf *core.Config) identity.Directory {
	return &httpDirectory{
		baseURL: conf.IdentityBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (d *httpDirectory) Email(ctx context.Context, userID string) (mail.Address, error) {
	endpoint := fmt.Sprintf("%s/v1/users/%s", d.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return mail.Address{}, errors.Wrap(err, "building request")
	}

	res, err := d.client.Do(req)
	if err != nil {
		return mail.Address{}, errors.Wrap(err, "calling identity platform")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return mail.Address{}, errors.Errorf("identity platform returned %d for user %s", res.StatusCode, userID)
	}

	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return mail.Address{}, errors.Wrap(err, "decoding response")
	}
	if body.Email == "" {
		return mail.Address{}, errors.Errorf("user %s has no email on file", userID)
	}
	return mail.Address{Name: body.Name, Address: body.Email}, nil
}
