package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"tmpl-backend/pkg/api"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	client *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
	}
}

type Parameters struct {
	Mode string
	K    int
	Dist string
	Num  int
}

func (p Parameters) formData(submit string) map[string]string {
	data := map[string]string{"submit": submit}
	if p.Mode != "" {
		data["modes"] = p.Mode
	}
	if p.K > 0 {
		data["ks"] = strconv.Itoa(p.K)
	}
	if p.Dist != "" {
		data["dist"] = p.Dist
	}
	if p.Num > 0 {
		data["num"] = strconv.Itoa(p.Num)
	}
	return data
}

type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func checkResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &ResponseError{StatusCode: res.StatusCode(), Message: strings.TrimSpace(res.String())}
}

// Submit uploads a PDF. wrap, when set, can decorate the file reader, for
// example to report progress.
func (c *Client) Submit(ctx context.Context, path string, params Parameters, wrap func(io.Reader) io.Reader) (api.SubmitResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer file.Close()

	var body io.Reader = file
	if wrap != nil {
		body = wrap(file)
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFileReader("userpdf", filepath.Base(path), body).
		SetFormData(params.formData("Upload")).
		Post("/")
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("error submitting %s: %w", path, err)
	}
	if err := checkResponse(res); err != nil {
		return api.SubmitResponse{}, err
	}

	var out api.SubmitResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.SubmitResponse{}, fmt.Errorf("error parsing submit response: %w", err)
	}
	return out, nil
}

func (c *Client) Visualize(ctx context.Context, params Parameters) (api.Visualization, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetMultipartFormData(params.formData("Visualize")).
		Post("/")
	if err != nil {
		return api.Visualization{}, fmt.Errorf("error requesting visualization: %w", err)
	}
	if err := checkResponse(res); err != nil {
		return api.Visualization{}, err
	}

	var out api.Visualization
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.Visualization{}, fmt.Errorf("error parsing visualization response: %w", err)
	}
	return out, nil
}

func (c *Client) ListSubmissions(ctx context.Context, limit int) ([]api.Submission, error) {
	var out []api.Submission
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/submissions")
	if err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	if err := checkResponse(res); err != nil {
		return nil, err
	}
	return out, nil
}
