package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/utils"
)

type pathArg struct {
	Path string `positional-arg-name:"path" description:"API path, e.g. /api/v2/UserProfile"`
}

// GetCmd prints the body of a single GET.
type GetCmd struct {
	requestFlags
	Args pathArg `positional-args:"yes" required:"yes"`

	app *app
}

func (c *GetCmd) Execute(_ []string) error {
	client, err := c.app.connect()
	if err != nil {
		return err
	}
	opts, err := c.requestOptions()
	if err != nil {
		return err
	}
	resp, err := client.Get(c.app.ctx, c.Args.Path, opts...)
	if err != nil {
		return err
	}
	return writeBody(c.app, resp)
}

// ItemsCmd prints every item of a paged collection as JSON lines.
type ItemsCmd struct {
	requestFlags
	Limit int     `short:"n" long:"limit" description:"stop after this many items (0 = all)"`
	Args  pathArg `positional-args:"yes" required:"yes"`

	app *app
}

func (c *ItemsCmd) Execute(_ []string) error {
	client, err := c.app.connect()
	if err != nil {
		return err
	}
	opts, err := c.requestOptions()
	if err != nil {
		return err
	}

	n := 0
	for item, err := range client.Items(c.app.ctx, c.Args.Path, opts...) {
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(c.app.out, string(item)); err != nil {
			return err
		}
		n++
		if c.Limit > 0 && n >= c.Limit {
			break
		}
	}
	return nil
}

// SearchCmd posts a search body and prints every match as JSON lines.
type SearchCmd struct {
	requestFlags
	Body  string  `short:"b" long:"body" default:"{}" description:"JSON search body, or @file to read it from a file"`
	Limit int     `short:"n" long:"limit" description:"stop after this many items (0 = all)"`
	Args  pathArg `positional-args:"yes" required:"yes"`

	app *app
}

func (c *SearchCmd) Execute(_ []string) error {
	body, err := readBody(c.Body)
	if err != nil {
		return err
	}
	client, err := c.app.connect()
	if err != nil {
		return err
	}
	opts, err := c.requestOptions()
	if err != nil {
		return err
	}

	n := 0
	for item, err := range client.SearchItems(c.app.ctx, c.Args.Path, body, opts...) {
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(c.app.out, string(item)); err != nil {
			return err
		}
		n++
		if c.Limit > 0 && n >= c.Limit {
			break
		}
	}
	return nil
}

// TokenCmd acquires a token and prints it masked unless --show is given.
type TokenCmd struct {
	Show bool `long:"show" description:"print the full token"`

	app *app
}

func (c *TokenCmd) Execute(_ []string) error {
	client, err := c.app.connect()
	if err != nil {
		return err
	}
	tok, err := client.Token(c.app.ctx)
	if err != nil {
		return err
	}
	value := utils.MaskSecret(tok.Value)
	if c.Show {
		value = tok.Value
	}
	return writeJSON(c.app, map[string]string{
		"account":   client.Account(),
		"token":     value,
		"expiresAt": tok.ExpiresAt.Format(time.RFC3339),
	})
}

// ProfilesCmd lists the profile names found in AWS Secrets Manager.
type ProfilesCmd struct {
	app *app
}

func (c *ProfilesCmd) Execute(_ []string) error {
	resolver, err := c.app.resolver()
	if err != nil {
		return err
	}
	names, err := resolver.DiscoverProfiles(c.app.ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(c.app.out, name); err != nil {
			return err
		}
	}
	return nil
}

func (f requestFlags) requestOptions() ([]api.RequestOption, error) {
	var opts []api.RequestOption
	if len(f.Params) > 0 {
		params := url.Values{}
		for _, p := range f.Params {
			k, v, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --param %q, want key=value", p)
			}
			params.Add(k, v)
		}
		opts = append(opts, api.WithParams(params))
	}
	if f.Org {
		opts = append(opts, api.WithOrgAccess())
	}
	return opts, nil
}

// readBody parses v as JSON, reading it from a file when it starts with @.
func readBody(v string) (json.RawMessage, error) {
	data := []byte(v)
	if name, ok := strings.CutPrefix(v, "@"); ok {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return nil, fmt.Errorf("read search body: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, errors.New("search body is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func writeBody(a *app, resp *api.Response) error {
	if len(resp.Body) == 0 {
		return nil
	}
	if !resp.IsJSON() {
		_, err := fmt.Fprintln(a.out, resp.Text())
		return err
	}
	var v any
	if err := resp.JSON(&v); err != nil {
		return err
	}
	return writeJSON(a, v)
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
