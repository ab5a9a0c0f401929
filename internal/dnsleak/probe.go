package dnsleak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// probeTimeout bounds each HTTP call against a leak-test service.
const probeTimeout = 10 * time.Second

// subdomainProbes is the number of numbered subdomains resolved per run.
const subdomainProbes = 10

// remoteProbe runs the leak test against bash.ws and falls back to
// dnsleaktest.com when bash.ws is unreachable.
func (c *Checker) remoteProbe(ctx context.Context) ([]Server, error) {
	servers, err := c.probeBashWS(ctx)
	if err == nil {
		return servers, nil
	}
	c.log.Debugf("bash.ws probe failed, trying dnsleaktest.com: %v", err)

	servers, err2 := c.probeDNSLeakTest(ctx)
	if err2 != nil {
		return nil, fmt.Errorf("all leak-test services failed: %v; %w", err, err2)
	}
	return servers, nil
}

// probeBashWS implements the bash.ws flow: fetch a unique test ID, force
// the OS resolver through numbered subdomains under it, then ask the
// service which resolvers it saw.
func (c *Checker) probeBashWS(ctx context.Context) ([]Server, error) {
	client := netutil.Client(probeTimeout)

	id, err := getText(ctx, client, "https://bash.ws/id")
	if err != nil {
		return nil, fmt.Errorf("could not fetch leak ID: %w", err)
	}

	// Whichever resolver the OS actually uses answers these, revealing
	// its identity to the service. Per-subdomain failures are expected.
	for i := 0; i < subdomainProbes; i++ {
		resolveQuiet(ctx, fmt.Sprintf("%d.%s.bash.ws", i, id))
		sleep(ctx, 100*time.Millisecond)
	}

	var entries []struct {
		Type        string `json:"type"`
		IP          string `json:"ip"`
		CountryName string `json:"country_name"`
		ASN         string `json:"asn"`
	}
	url := fmt.Sprintf("https://bash.ws/dnsleak/test/%s?json", id)
	if err := getProbeJSON(ctx, client, url, &entries); err != nil {
		return nil, fmt.Errorf("could not fetch leak report: %w", err)
	}

	var servers []Server
	for _, e := range entries {
		if e.Type != "dns" {
			continue
		}
		asn := e.ASN
		if asn == "" {
			asn = "Unknown"
		}
		servers = append(servers, Server{IP: e.IP, Country: e.CountryName, ASN: asn})
	}
	return servers, nil
}

// probeDNSLeakTest implements the dnsleaktest.com flow with locally
// generated identifiers.
func (c *Checker) probeDNSLeakTest(ctx context.Context) ([]Server, error) {
	client := netutil.Client(probeTimeout)

	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		ids = append(ids, uuid.NewString())
	}

	// Pre-announce the identifiers; the service tolerates failures here.
	announce, _ := json.Marshal(struct {
		Identifiers []string `json:"identifiers"`
	}{ids})
	postQuiet(ctx, client, "https://www.dnsleaktest.com/api/v1/identifiers", announce)

	for _, id := range ids {
		resolveQuiet(ctx, id+".test.dnsleaktest.com")
	}

	payload, err := json.Marshal(struct {
		Queries []string `json:"queries"`
	}{ids})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.dnsleaktest.com/api/v1/servers-for-result", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var entries []struct {
		IPAddress string `json:"ip_address"`
		ISP       string `json:"isp"`
		Country   string `json:"country"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no recursors returned")
	}

	var servers []Server
	for _, e := range entries {
		asn := e.ISP
		if asn == "" {
			asn = "Unknown"
		}
		servers = append(servers, Server{IP: e.IPAddress, Country: e.Country, ASN: asn})
	}
	return servers, nil
}

func getText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}
	return string(bytes.TrimSpace(body)), nil
}

func getProbeJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, v)
}

func postQuiet(ctx context.Context, client *http.Client, url string, payload []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	resp, err := client.Do(req)
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func resolveQuiet(ctx context.Context, host string) {
	_, _ = net.DefaultResolver.LookupHost(ctx, host)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
