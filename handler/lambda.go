package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mwantia/carupload/data"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/service"
)

// Lambda adapts the service to API Gateway events. Errors are always
// reported as responses, never returned to the runtime.
type Lambda struct {
	svc     *service.Service
	logger  *log.Logger
	metrics *Metrics
}

func NewLambda(svc *service.Service, logger *log.Logger, metrics *Metrics) *Lambda {
	if logger == nil {
		logger = log.Discard()
	}
	return &Lambda{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleRequest serves the upload route of an HTTP API:
// type=data|file returns a signed CAR upload URL; type=meta stores (PUT),
// signs (GET with branch) or lists (GET without branch) metadata.
func (l *Lambda) HandleRequest(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var (
		start  = time.Now()
		query  = req.QueryStringParameters
		kind   = data.Kind(query["type"])
		method = req.RequestContext.HTTP.Method
		op     = "lambda_upload"
	)

	var (
		code    int
		payload any
	)
	switch {
	case kind == data.KindMeta && method == http.MethodPut:
		op = "lambda_put_meta"
		code, payload = l.putMeta(ctx, query["name"], req)
	case kind == data.KindMeta && method == http.MethodGet && query["branch"] == "":
		op = "lambda_list_meta"
		code, payload = l.listMeta(ctx, query["name"])
	case kind == data.KindMeta && method != http.MethodGet:
		code, payload = http.StatusBadRequest, ResponseMessage{Message: "Invalid HTTP method"}
	default:
		code, payload = l.uploadURL(ctx, query)
	}

	l.metrics.observe(op, code, time.Since(start))
	l.logger.Info("[%s] %s %s -> %d", req.RequestContext.RequestID, method, req.RawQueryString, code)
	return httpResponse(code, payload), nil
}

func (l *Lambda) uploadURL(ctx context.Context, query map[string]string) (int, any) {
	req := service.UploadRequest{
		Kind:   data.Kind(query["type"]),
		Name:   query["name"],
		CID:    query["car"],
		Branch: query["branch"],
	}
	if value := query["size"]; value != "" {
		size, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errorResponse(data.InvalidParameter("size"))
		}
		req.Size = size
	}

	resp, err := l.svc.UploadURL(ctx, req)
	if err != nil {
		l.logError(err)
		return errorResponse(err)
	}
	return http.StatusOK, resp
}

func (l *Lambda) putMeta(ctx context.Context, name string, req events.APIGatewayV2HTTPRequest) (int, any) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return errorResponse(data.InvalidParameter("body"))
		}
		body = decoded
	}
	if len(body) == 0 {
		return http.StatusBadRequest, ResponseMessage{Message: "JSON Payload data not found!"}
	}

	var doc service.MetaDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return errorResponse(data.InvalidParameter("body"))
	}

	result, err := l.svc.PutMeta(ctx, name, &doc)
	if err != nil {
		l.logError(err)
	}
	return metaResponse(result, err)
}

func (l *Lambda) listMeta(ctx context.Context, name string) (int, any) {
	records, err := l.svc.ListMeta(ctx, name)
	if err != nil {
		l.logError(err)
		return errorResponse(err)
	}
	return http.StatusOK, ResponseItems{Items: records}
}

// HandleConnect registers the websocket connection for the namespace given
// by the "name" query parameter.
func (l *Lambda) HandleConnect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	id := req.RequestContext.ConnectionID

	if err := l.svc.Connect(ctx, id, req.QueryStringParameters["name"]); err != nil {
		l.logError(err)
		code := errorStatusCode(err)
		l.metrics.observe("lambda_connect", code, time.Since(start))
		return websocketResponse(code, "Failed to connect: "+err.Error()), nil
	}

	l.metrics.observe("lambda_connect", http.StatusOK, time.Since(start))
	return websocketResponse(http.StatusOK, "Connected."), nil
}

// HandleDisconnect removes the websocket connection from the registry.
func (l *Lambda) HandleDisconnect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	id := req.RequestContext.ConnectionID
	l.logger.Debug("Disconnect on route '%s' for '%s'", req.RequestContext.RouteKey, id)

	if err := l.svc.Disconnect(ctx, id); err != nil {
		l.logError(err)
		code := errorStatusCode(err)
		l.metrics.observe("lambda_disconnect", code, time.Since(start))
		return websocketResponse(code, "Failed to disconnect: "+err.Error()), nil
	}

	l.metrics.observe("lambda_disconnect", http.StatusOK, time.Since(start))
	return websocketResponse(http.StatusOK, "Disconnected."), nil
}

func (l *Lambda) logError(err error) {
	if data.IsCallerError(err) {
		l.logger.Debug("Rejected request: %v", err)
		return
	}
	l.logger.Error("Request failed: %v", err)
}

func httpResponse(code int, payload any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		body, _ = json.Marshal(ResponseError{Message: http.StatusText(code), Error: err.Error()})
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: code,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func websocketResponse(code int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: code,
		Body:       body,
	}
}
