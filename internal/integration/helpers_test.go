//go:build integration_test || all_tests

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/middleware"
)

type loginResponse struct {
	Token string `json:"token"`
}

func (s *IntegrationTestSuite) login(ctx context.Context) string {
	resp, body := s.do(ctx, http.MethodPost, "/a/login", auth.Credentials{
		Username: testUsername,
		Password: testPassword,
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))

	var loginResp loginResponse
	s.Require().NoError(json.Unmarshal(body, &loginResp))
	s.Require().NotEmpty(loginResp.Token)
	return loginResp.Token
}

// do sends payload as JSON (nil means no body) and returns the response with its body read.
func (s *IntegrationTestSuite) do(ctx context.Context, method, path string, payload any, token string) (*http.Response, []byte) {
	var reqBody io.Reader
	if payload != nil {
		payloadJson, err := json.Marshal(payload)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(payloadJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("User-Agent", "test-agent")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.AuthTokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, body
}

// doAuthed is do with the suite's login token.
func (s *IntegrationTestSuite) doAuthed(ctx context.Context, method, path string, payload any) (*http.Response, []byte) {
	return s.do(ctx, method, path, payload, s.token)
}

func (s *IntegrationTestSuite) decode(body []byte, v any) {
	s.Require().NoError(json.Unmarshal(body, v), string(body))
}
