package repsol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/raterudder/luzygas/pkg/common"
	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/types"
)

const customerAreaURL = "https://areacliente.repsol.es"

// loginFields are sent with every login alongside the credentials.
var loginFields = map[string]string{
	"targetEnv":         "jssdk",
	"sessionExpiration": "7776000",
	"include":           "profile,data",
	"includeUserInfo":   "true",
	"lang":              "es",
	"sdk":               "js_latest",
	"authMode":          "cookie",
	"pageURL":           customerAreaURL + "/login",
	"format":            "json",
}

var loginHeaders = map[string]string{
	"Accept":       "*/*",
	"Content-Type": "application/x-www-form-urlencoded",
	"Origin":       customerAreaURL,
	"Referer":      customerAreaURL + "/",
}

var apiHeaders = map[string]string{
	"Accept":       "application/json, text/plain, */*",
	"Content-Type": "application/json; charset=utf-8",
	"Origin":       customerAreaURL,
	"Referer":      customerAreaURL + "/",
	"x-origin":     "WEB",
}

// Session is the identity returned by a successful login.
type Session struct {
	UID       string
	Signature string
	Timestamp string
}

func (s Session) valid() bool {
	return s.UID != "" && s.Signature != "" && s.Timestamp != ""
}

// Client talks to the Repsol Luz y Gas customer area. Each FetchAll logs in
// again and replaces the session.
type Client struct {
	client     *http.Client
	loginURL   string
	apiURL     string
	apiKey     string
	username   string
	password   string
	contractID string

	mu      sync.Mutex
	session Session
}

// New returns a Client for cfg.
func New(cfg Config) (*Client, error) {
	c := &Client{}
	if err := c.init(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) init(cfg Config) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	hc, err := common.SessionHTTPClient(cfg.Timeout, []string{cfg.LoginURL, cfg.APIURL}, sessionCookies(cfg.APIKey))
	if err != nil {
		return err
	}
	c.client = hc
	c.loginURL = cfg.LoginURL
	c.apiURL = cfg.APIURL
	c.apiKey = cfg.APIKey
	c.username = cfg.Username
	c.password = cfg.Password
	c.contractID = cfg.ContractID
	return nil
}

// sessionCookies are the fixed cookies the customer area expects on every
// request.
func sessionCookies(apiKey string) []*http.Cookie {
	cookies := []*http.Cookie{
		{Name: "gig_canary", Value: "false"},
		{Name: "gig_canary_ver", Value: "13"},
	}
	if apiKey != "" {
		cookies = append(cookies, &http.Cookie{Name: "gig_bootstrap_" + apiKey, Value: "login_ver4"})
	}
	return cookies
}

// ContractID returns the selected contract, if any.
func (c *Client) ContractID() string {
	return c.contractID
}

// Session returns the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

type loginResult struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	UserInfo     struct {
		UID                string `json:"UID"`
		UIDSignature       string `json:"UIDSignature"`
		SignatureTimestamp string `json:"signatureTimestamp"`
	} `json:"userInfo"`
}

// Login posts the credentials and stores the returned session.
func (c *Client) Login(ctx context.Context) error {
	data := url.Values{}
	for k, v := range loginFields {
		data.Set(k, v)
	}
	data.Set("apiKey", c.apiKey)
	data.Set("loginID", c.username)
	data.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.loginURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	for k, v := range loginHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "repsol login request failed", slog.Any("error", err))
		return fmt.Errorf("%w: login request failed: %w", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read login response: %w", ErrConnectivity, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).ErrorContext(ctx, "repsol login failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", log.Truncate(string(body), 500)),
		)
		return fmt.Errorf("%w: login returned status %d", ErrAuthentication, resp.StatusCode)
	}

	var res loginResult
	if err := json.Unmarshal(body, &res); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode repsol login response",
			slog.Any("error", err),
			slog.String("body", log.Truncate(string(body), 500)),
		)
		return fmt.Errorf("%w: failed to decode login response: %w", ErrAuthentication, err)
	}

	session := Session{
		UID:       res.UserInfo.UID,
		Signature: res.UserInfo.UIDSignature,
		Timestamp: res.UserInfo.SignatureTimestamp,
	}
	if !session.valid() {
		log.Ctx(ctx).ErrorContext(ctx, "repsol login missing session",
			slog.Int("errorCode", res.ErrorCode),
			slog.String("errorMessage", res.ErrorMessage),
		)
		if res.ErrorMessage != "" {
			return fmt.Errorf("%w: %s", ErrAuthentication, res.ErrorMessage)
		}
		return fmt.Errorf("%w: login response missing session", ErrAuthentication)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	log.Ctx(ctx).DebugContext(ctx, "repsol login success", slog.String("uid", session.UID))
	return nil
}

func (c *Client) newGetRequest(ctx context.Context, elem ...string) (*http.Request, error) {
	u, err := common.JoinURL(c.apiURL, elem...)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range apiHeaders {
		req.Header.Set(k, v)
	}
	s := c.Session()
	req.Header.Set("UID", s.UID)
	req.Header.Set("signature", s.Signature)
	req.Header.Set("signatureTimestamp", s.Timestamp)
	return req, nil
}

// doRequest returns the decoded body. Transport failures and non-200 responses
// are ErrConnectivity. An empty body decodes to a null Document.
func (c *Client) doRequest(req *http.Request) (types.Document, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: failed to read response: %w", ErrConnectivity, err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.Document{}, fmt.Errorf("%w: status %d", ErrConnectivity, resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return types.Document{}, nil
	}

	doc, err := types.ParseDocument(body)
	if err != nil {
		log.Ctx(req.Context()).ErrorContext(req.Context(), "failed to decode repsol response",
			slog.Any("error", err),
			slog.String("body", log.Truncate(string(body), 500)),
		)
		return types.Document{}, fmt.Errorf("%w: failed to decode response: %w", ErrConnectivity, err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, elem ...string) (types.Document, error) {
	req, err := c.newGetRequest(ctx, elem...)
	if err != nil {
		return types.Document{}, err
	}
	return c.doRequest(req)
}

// ListContracts returns every contract of every house on the account.
func (c *Client) ListContracts(ctx context.Context) ([]types.Contract, error) {
	doc, err := c.get(ctx, "houses")
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch repsol contracts", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch contracts: %w", err)
	}
	if !doc.Truthy() {
		log.Ctx(ctx).WarnContext(ctx, "no contract data received")
		return []types.Contract{}, nil
	}

	contracts := []types.Contract{}
	for _, house := range doc.List() {
		houseID := house.Get("code").Text()
		for _, contract := range house.Get("contracts").List() {
			contracts = append(contracts, types.Contract{
				ContractID:   contract.Get("code").Text(),
				ContractType: types.ParseContractType(contract.Get("contractType").Text()),
				CUPS:         contract.Get("cups").Text(),
				Active:       contract.Get("status").Text() == "ACTIVE",
				HouseID:      houseID,
				Raw:          contract,
			})
		}
	}
	log.Ctx(ctx).DebugContext(ctx, "repsol contracts", slog.Int("count", len(contracts)))
	return contracts, nil
}

// HouseDetails returns the house document, including its contracts and SVA
// services, or a null Document on failure.
func (c *Client) HouseDetails(ctx context.Context, houseID string) types.Document {
	doc, err := c.get(ctx, "houses", houseID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch house data", slog.Any("error", err))
		return types.Document{}
	}
	return doc
}

func productPath(houseID, contractID string, elem ...string) []string {
	return append([]string{"houses", houseID, "products", contractID}, elem...)
}

// Invoices returns the contract's invoices or a null Document on failure.
func (c *Client) Invoices(ctx context.Context, houseID, contractID string) types.Document {
	doc, err := c.get(ctx, productPath(houseID, contractID, "invoices")...)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch invoice data", slog.Any("error", err))
		return types.Document{}
	}
	return doc
}

// Costs returns the current billing period costs. Every cost field is present
// and zero when the request fails or the field is missing.
func (c *Client) Costs(ctx context.Context, houseID, contractID string) types.Costs {
	doc, err := c.get(ctx, productPath(houseID, contractID, "consumption")...)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch costs data", slog.Any("error", err))
		return types.NewCosts(types.Document{})
	}
	return types.NewCosts(doc)
}

// NextInvoice returns the next invoice estimate. Many contracts don't have one
// so failures are only logged at debug.
func (c *Client) NextInvoice(ctx context.Context, houseID, contractID string) types.NextInvoice {
	doc, err := c.get(ctx, productPath(houseID, contractID, "next-invoice")...)
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to fetch next invoice data", slog.Any("error", err))
		return types.NewNextInvoice(types.Document{})
	}
	return types.NewNextInvoice(doc)
}

// VirtualBatteryHistory returns the virtual battery document or a null
// Document on failure.
func (c *Client) VirtualBatteryHistory(ctx context.Context, houseID, contractID string) types.Document {
	doc, err := c.get(ctx, productPath(houseID, contractID, "virtual-battery", "history")...)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch virtual battery history data", slog.Any("error", err))
		return types.Document{}
	}
	return doc
}

// FetchContract fetches every detail for a single contract. Failures of the
// individual requests leave the matching field null or zeroed.
func (c *Client) FetchContract(ctx context.Context, contract types.Contract) types.Bundle {
	ctx = log.WithContract(ctx, contract.HouseID, contract.ContractID)

	b := types.Bundle{
		Contract:    contract,
		House:       c.HouseDetails(ctx, contract.HouseID),
		Invoices:    c.Invoices(ctx, contract.HouseID, contract.ContractID),
		Costs:       c.Costs(ctx, contract.HouseID, contract.ContractID),
		NextInvoice: c.NextInvoice(ctx, contract.HouseID, contract.ContractID),
	}
	if contract.ContractType == types.ContractTypeElectricity {
		b.VirtualBattery = c.VirtualBatteryHistory(ctx, contract.HouseID, contract.ContractID)
	}
	return b
}

// FetchAll logs in, lists the contracts, and fetches every selected contract
// sequentially. Login, listing and contract selection errors abort the fetch.
func (c *Client) FetchAll(ctx context.Context) (*types.Snapshot, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}

	contracts, err := c.ListContracts(ctx)
	if err != nil {
		return nil, err
	}

	if c.contractID != "" {
		var selected []types.Contract
		for _, contract := range contracts {
			if contract.ContractID == c.contractID {
				selected = append(selected, contract)
			}
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: selected contract %s not found", ErrConfiguration, c.contractID)
		}
		contracts = selected
	}

	snap := &types.Snapshot{
		FetchedAt: time.Now(),
		Contracts: make(map[string]types.Bundle, len(contracts)),
	}
	for _, contract := range contracts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap.Contracts[contract.ContractID] = c.FetchContract(ctx, contract)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched repsol data", slog.Int("contracts", len(snap.Contracts)))
	return snap, nil
}
