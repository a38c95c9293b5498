package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// SenderServiceName is the fully qualified name of the sender service.
const SenderServiceName = "sender.v1.SenderService"

const (
	SendProcedure                     = "/" + SenderServiceName + "/Send"
	ConfirmProcedure                  = "/" + SenderServiceName + "/Confirm"
	CancelProcedure                   = "/" + SenderServiceName + "/Cancel"
	GetSessionProcedure               = "/" + SenderServiceName + "/GetSession"
	ListPendingConfirmationsProcedure = "/" + SenderServiceName + "/ListPendingConfirmations"
	ListTransfersProcedure            = "/" + SenderServiceName + "/ListTransfers"
	ClearTransfersProcedure           = "/" + SenderServiceName + "/ClearTransfers"
)

// SenderServiceHandler is the server side of the sender service.
type SenderServiceHandler interface {
	Send(context.Context, *connect.Request[models.SendRequest]) (*connect.Response[models.SendResponse], error)
	Confirm(context.Context, *connect.Request[models.SessionRequest]) (*connect.Response[models.Empty], error)
	Cancel(context.Context, *connect.Request[models.SessionRequest]) (*connect.Response[models.Empty], error)
	GetSession(context.Context, *connect.Request[models.SessionRequest]) (*connect.Response[models.SessionResponse], error)
	ListPendingConfirmations(context.Context, *connect.Request[models.Empty]) (*connect.Response[models.PendingConfirmationsResponse], error)
	ListTransfers(context.Context, *connect.Request[models.ListTransfersRequest]) (*connect.Response[models.ListTransfersResponse], error)
	ClearTransfers(context.Context, *connect.Request[models.Empty]) (*connect.Response[models.Empty], error)
}

// NewSenderServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewSenderServiceHandler(svc SenderServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	handlers := map[string]http.Handler{
		SendProcedure:                     connect.NewUnaryHandler(SendProcedure, svc.Send, opts...),
		ConfirmProcedure:                  connect.NewUnaryHandler(ConfirmProcedure, svc.Confirm, opts...),
		CancelProcedure:                   connect.NewUnaryHandler(CancelProcedure, svc.Cancel, opts...),
		GetSessionProcedure:               connect.NewUnaryHandler(GetSessionProcedure, svc.GetSession, opts...),
		ListPendingConfirmationsProcedure: connect.NewUnaryHandler(ListPendingConfirmationsProcedure, svc.ListPendingConfirmations, opts...),
		ListTransfersProcedure:            connect.NewUnaryHandler(ListTransfersProcedure, svc.ListTransfers, opts...),
		ClearTransfersProcedure:           connect.NewUnaryHandler(ClearTransfersProcedure, svc.ClearTransfers, opts...),
	}

	return "/" + SenderServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// SenderServiceClient calls the sender service.
type SenderServiceClient struct {
	send                     *connect.Client[models.SendRequest, models.SendResponse]
	confirm                  *connect.Client[models.SessionRequest, models.Empty]
	cancel                   *connect.Client[models.SessionRequest, models.Empty]
	getSession               *connect.Client[models.SessionRequest, models.SessionResponse]
	listPendingConfirmations *connect.Client[models.Empty, models.PendingConfirmationsResponse]
	listTransfers            *connect.Client[models.ListTransfersRequest, models.ListTransfersResponse]
	clearTransfers           *connect.Client[models.Empty, models.Empty]
}

// NewSenderServiceClient creates a client for the service at baseURL, e.g.
// http://localhost:8080.
func NewSenderServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SenderServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &SenderServiceClient{
		send:                     connect.NewClient[models.SendRequest, models.SendResponse](httpClient, baseURL+SendProcedure, opts...),
		confirm:                  connect.NewClient[models.SessionRequest, models.Empty](httpClient, baseURL+ConfirmProcedure, opts...),
		cancel:                   connect.NewClient[models.SessionRequest, models.Empty](httpClient, baseURL+CancelProcedure, opts...),
		getSession:               connect.NewClient[models.SessionRequest, models.SessionResponse](httpClient, baseURL+GetSessionProcedure, opts...),
		listPendingConfirmations: connect.NewClient[models.Empty, models.PendingConfirmationsResponse](httpClient, baseURL+ListPendingConfirmationsProcedure, opts...),
		listTransfers:            connect.NewClient[models.ListTransfersRequest, models.ListTransfersResponse](httpClient, baseURL+ListTransfersProcedure, opts...),
		clearTransfers:           connect.NewClient[models.Empty, models.Empty](httpClient, baseURL+ClearTransfersProcedure, opts...),
	}
}

func (c *SenderServiceClient) Send(ctx context.Context, req *models.SendRequest) (*models.SendResponse, error) {
	resp, err := c.send.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *SenderServiceClient) Confirm(ctx context.Context, sessionID string) error {
	_, err := c.confirm.CallUnary(ctx, connect.NewRequest(&models.SessionRequest{SessionID: sessionID}))
	return err
}

func (c *SenderServiceClient) Cancel(ctx context.Context, sessionID string) error {
	_, err := c.cancel.CallUnary(ctx, connect.NewRequest(&models.SessionRequest{SessionID: sessionID}))
	return err
}

func (c *SenderServiceClient) GetSession(ctx context.Context, sessionID string) (*models.SessionResponse, error) {
	resp, err := c.getSession.CallUnary(ctx, connect.NewRequest(&models.SessionRequest{SessionID: sessionID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *SenderServiceClient) ListPendingConfirmations(ctx context.Context) (*models.PendingConfirmationsResponse, error) {
	resp, err := c.listPendingConfirmations.CallUnary(ctx, connect.NewRequest(&models.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *SenderServiceClient) ListTransfers(ctx context.Context, limit int) (*models.ListTransfersResponse, error) {
	resp, err := c.listTransfers.CallUnary(ctx, connect.NewRequest(&models.ListTransfersRequest{Limit: limit}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *SenderServiceClient) ClearTransfers(ctx context.Context) error {
	_, err := c.clearTransfers.CallUnary(ctx, connect.NewRequest(&models.Empty{}))
	return err
}
