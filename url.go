// Copyright (c) 2022 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mautrix

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Stringifiable lets BuildURL accept identifier newtypes (id.RoomID,
// id.EventID, ...) without a type switch for each one.
type Stringifiable interface {
	String() string
}

func parseAndNormalizeBaseURL(homeserverURL string) (*url.URL, error) {
	hsURL, err := url.Parse(homeserverURL)
	if err != nil {
		return nil, err
	}
	if hsURL.Scheme == "" {
		hsURL.Scheme = "https"
		fixedURL := hsURL.String()
		hsURL, err = url.Parse(fixedURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fixed URL %q: %w", fixedURL, err)
		}
	}
	hsURL.RawPath = hsURL.EscapedPath()
	return hsURL, nil
}

// BuildURL builds a URL with the given path parts appended to baseURL.
func BuildURL(baseURL *url.URL, path ...any) *url.URL {
	createdURL := *baseURL
	rawParts := make([]string, len(path)+1)
	rawParts[0] = strings.TrimSuffix(createdURL.RawPath, "/")
	parts := make([]string, len(path)+1)
	parts[0] = strings.TrimSuffix(createdURL.Path, "/")
	for i, part := range path {
		switch casted := part.(type) {
		case string:
			parts[i+1] = casted
		case int:
			parts[i+1] = strconv.Itoa(casted)
		case Stringifiable:
			parts[i+1] = casted.String()
		default:
			parts[i+1] = fmt.Sprint(casted)
		}
		rawParts[i+1] = url.PathEscape(parts[i+1])
	}
	createdURL.Path = strings.Join(parts, "/")
	createdURL.RawPath = strings.Join(rawParts, "/")
	return &createdURL
}

// BuildClientURL builds a URL under /_matrix/client/<path...>.
func (cli *Client) BuildClientURL(path ...any) string {
	return cli.BuildURLWithQuery(append([]any{"_matrix", "client"}, path...), nil)
}

// BuildURLWithQuery builds a homeserver-relative URL with query parameters.
func (cli *Client) BuildURLWithQuery(urlPath []any, urlQuery map[string]string) string {
	hsURL := *BuildURL(cli.HomeserverURL, urlPath...)
	query := hsURL.Query()
	for k, v := range urlQuery {
		query.Set(k, v)
	}
	hsURL.RawQuery = query.Encode()
	return hsURL.String()
}
