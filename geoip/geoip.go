// Package geoip annotates audit records with the requester's region.
// Lookups are purely advisory: failures return an empty region and never
// delay or alter dispatch.
package geoip

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	"saffaucet/jsonx"
	"saffaucet/logx"
)

const (
	defaultEndpoint = "http://ip-api.com/json"
	lookupTimeout   = 2 * time.Second
)

type Resolver struct {
	client   *resty.Client
	endpoint string
}

func NewResolver(endpoint string) *Resolver {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Resolver{
		client:   resty.New().SetTimeout(lookupTimeout),
		endpoint: endpoint,
	}
}

type lookupResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
}

// Region returns a "Region, Country" annotation for ip, or "" when the
// lookup fails or the address is private.
func (r *Resolver) Region(ctx context.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return ""
	}

	resp, err := r.client.R().SetContext(ctx).Get(r.endpoint + "/" + ip)
	if err != nil || resp.IsError() {
		logx.Debug("geoip", "lookup failed for ", ip)
		return ""
	}

	var result lookupResponse
	if err := jsonx.Unmarshal(resp.Body(), &result); err != nil || result.Status != "success" {
		return ""
	}
	if result.RegionName == "" {
		return result.Country
	}
	return fmt.Sprintf("%s, %s", result.RegionName, result.Country)
}
