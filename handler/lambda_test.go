package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mwantia/carupload/service"
)

func httpEvent(method string, query map[string]string, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		QueryStringParameters: query,
		Body:                  body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: "test",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
			},
		},
	}
}

func websocketEvent(connectionID string, query map[string]string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		QueryStringParameters: query,
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			ConnectionID: connectionID,
			RouteKey:     "$disconnect",
		},
	}
}

func TestLambda_UploadURL(t *testing.T) {
	svc, _ := newTestService(t)
	l := NewLambda(svc, nil, nil)

	resp, err := l.HandleRequest(t.Context(), httpEvent("GET", map[string]string{
		"type": "file",
		"name": "mydb",
		"car":  testRawCID,
		"size": "9",
	}, ""))
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP %d: %s", resp.StatusCode, resp.Body)
	}

	var upload service.UploadResponse
	if err := json.Unmarshal([]byte(resp.Body), &upload); err != nil {
		t.Fatal(err)
	}
	if upload.Key != "file/mydb/"+testRawCID+".car" {
		t.Errorf("unexpected key %q", upload.Key)
	}
	if !strings.Contains(upload.UploadURL, "content-length=9") {
		t.Errorf("content length not bound: %q", upload.UploadURL)
	}
}

func TestLambda_MetaRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	l := NewLambda(svc, nil, NewMetrics(nil))
	query := map[string]string{"type": "meta", "name": "mydb"}

	body := base64.StdEncoding.EncodeToString([]byte(`{"cid":"` + testDagCID + `","data":{"head":1},"parents":[]}`))
	req := httpEvent("PUT", query, body)
	req.IsBase64Encoded = true

	resp, err := l.HandleRequest(t.Context(), req)
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("HTTP %d: %s", resp.StatusCode, resp.Body)
	}

	resp, err = l.HandleRequest(t.Context(), httpEvent("GET", query, ""))
	if err != nil {
		t.Fatalf("HandleRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP %d: %s", resp.StatusCode, resp.Body)
	}
	if !strings.Contains(resp.Body, `"cid":"`+testDagCID+`"`) {
		t.Errorf("stored record missing from %s", resp.Body)
	}
}

func TestLambda_MetaUploadURL(t *testing.T) {
	svc, _ := newTestService(t)
	l := NewLambda(svc, nil, nil)

	resp, _ := l.HandleRequest(t.Context(), httpEvent("GET", map[string]string{
		"type":   "meta",
		"name":   "mydb",
		"branch": "main",
	}, ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP %d: %s", resp.StatusCode, resp.Body)
	}
	if !strings.Contains(resp.Body, `"Key":"meta/mydb/main.json"`) {
		t.Errorf("unexpected body %s", resp.Body)
	}
}

func TestLambda_BadRequests(t *testing.T) {
	svc, _ := newTestService(t)
	l := NewLambda(svc, nil, nil)

	tests := map[string]events.APIGatewayV2HTTPRequest{
		"invalid method": httpEvent("DELETE", map[string]string{"type": "meta", "name": "mydb"}, ""),
		"empty body":     httpEvent("PUT", map[string]string{"type": "meta", "name": "mydb"}, ""),
		"missing data":   httpEvent("PUT", map[string]string{"type": "meta", "name": "mydb"}, `{"cid":"`+testDagCID+`"}`),
		"missing type":   httpEvent("GET", map[string]string{"name": "mydb"}, ""),
		"missing name":   httpEvent("GET", map[string]string{"type": "data", "car": testDagCID}, ""),
	}

	for name, req := range tests {
		t.Run(name, func(tst *testing.T) {
			resp, err := l.HandleRequest(tst.Context(), req)
			if err != nil {
				tst.Fatalf("HandleRequest returned an error: %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				tst.Errorf("expected HTTP 400, got %d: %s", resp.StatusCode, resp.Body)
			}
		})
	}
}

func TestLambda_ConnectDisconnect(t *testing.T) {
	svc, mem := newTestService(t)
	l := NewLambda(svc, nil, nil)

	resp, err := l.HandleConnect(t.Context(), websocketEvent("abc=", map[string]string{"name": "mydb"}))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("HandleConnect failed: %d %v", resp.StatusCode, err)
	}
	if conn, ok := mem.Connection("abc="); !ok || conn.Namespace != "mydb" {
		t.Fatalf("unexpected connection %+v", conn)
	}

	resp, err = l.HandleDisconnect(t.Context(), websocketEvent("abc=", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("HandleDisconnect failed: %d %v", resp.StatusCode, err)
	}
	if resp.Body != "Disconnected." {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if _, ok := mem.Connection("abc="); ok {
		t.Error("connection still registered")
	}

	resp, _ = l.HandleDisconnect(t.Context(), websocketEvent("", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected HTTP 400 without connection id, got %d", resp.StatusCode)
	}
}
