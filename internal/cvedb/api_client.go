package cvedb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/xerrors"

	"CVECatalog/internal/utils"
)

const (
	DefaultNVDBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultNVDTimeout = 30 * time.Second
)

// CVEAPIClient 用于从NVD API获取单条CVE数据的客户端
type CVEAPIClient struct {
	baseURL    string
	apiKey     string
	logger     *utils.Logger
	httpClient *http.Client
}

type Option func(*CVEAPIClient)

func WithBaseURL(baseURL string) Option {
	return func(c *CVEAPIClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithAPIKey(apiKey string) Option {
	return func(c *CVEAPIClient) {
		c.apiKey = apiKey
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *CVEAPIClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewCVEAPIClient 创建新的CVE API客户端
func NewCVEAPIClient(opts ...Option) *CVEAPIClient {
	client := &CVEAPIClient{
		baseURL: DefaultNVDBaseURL,
		logger:  utils.NewLogger("cve-api-client"),
		httpClient: &http.Client{
			Timeout: DefaultNVDTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  false,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchResult 一次查询得到的记录和它的原始JSON
type FetchResult struct {
	Vulnerability NVDVulnerability
	Raw           json.RawMessage
}

// FetchCVE 按ID获取一条记录。feed中没有该记录时返回 ErrNotFound。
func (client *CVEAPIClient) FetchCVE(ctx context.Context, cveID string) (*FetchResult, error) {
	u, err := url.Parse(client.baseURL)
	if err != nil {
		return nil, xerrors.Errorf("invalid NVD base URL %q: %w", client.baseURL, err)
	}
	q := u.Query()
	q.Set("cveId", cveID)
	u.RawQuery = q.Encode()

	client.logger.Debug("请求URL: %s", u.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", "CVECatalog/1.0")
	req.Header.Set("Accept", "application/json")
	if client.apiKey != "" {
		req.Header.Set("apiKey", client.apiKey)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("API返回错误: %s, 响应: %s", resp.Status, truncate(string(body), 200))
	}

	var nvdResponse NVDResponse
	if err := json.Unmarshal(body, &nvdResponse); err != nil {
		client.logger.Error("解析JSON失败: %v, 响应: %s", err, truncate(string(body), 500))
		return nil, xerrors.Errorf("failed to decode NVD response: %w", err)
	}

	if len(nvdResponse.Vulnerabilities) == 0 {
		return nil, xerrors.Errorf("%s: %w", cveID, ErrNotFound)
	}

	raw := nvdResponse.Vulnerabilities[0]
	var vuln NVDVulnerability
	if err := json.Unmarshal(raw, &vuln); err != nil {
		return nil, xerrors.Errorf("failed to decode NVD vulnerability: %w", err)
	}

	client.logger.Debug("获取到 %s, 总结果数: %d", vuln.CVE.ID, nvdResponse.TotalResults)

	return &FetchResult{
		Vulnerability: vuln,
		Raw:           raw,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
