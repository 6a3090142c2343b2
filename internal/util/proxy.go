package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc returns a proxy selector for the dictionary client.
// Without explicit proxies it defers to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
// noProxy is a comma-separated list of hosts (or ".suffix" domains) that
// bypass the explicit proxies.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitHosts(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitHosts(list string) []string {
	var hosts []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || (strings.HasPrefix(b, ".") && strings.HasSuffix(host, b)) {
			return true
		}
	}
	return false
}
