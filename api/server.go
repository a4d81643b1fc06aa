package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"saffaucet/chain"
	ferrors "saffaucet/errors"
	"saffaucet/faucet"
	"saffaucet/logx"
	"saffaucet/monitoring"
)

// Server exposes the faucet over HTTP.
type Server struct {
	service    *faucet.Service
	healthDial func() chain.Gateway
	engine     *gin.Engine
}

type faucetRequest struct {
	Receiver string `json:"receiver"`
}

// successResponse mirrors the dispatch metadata. Gas and height are decimal
// strings so large values survive every JSON consumer untruncated.
type successResponse struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	ChainID         string `json:"chainId"`
	Height          string `json:"height"`
	Amount          string `json:"amount"`
	Denom           string `json:"denom"`
	Memo            string `json:"memo"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverAddress string `json:"receiverAddress"`
	SenderBalance   string `json:"senderBalance"`
	ReceiverBalance string `json:"receiverBalance"`
	GasUsed         string `json:"gasUsed"`
	GasWanted       string `json:"gasWanted"`
	ExplorerTxURL   string `json:"explorerTxUrl"`
}

type errorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	RateLimitType string `json:"rateLimitType,omitempty"`
}

func NewServer(service *faucet.Service, healthDial func() chain.Gateway) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{service: service, healthDial: healthDial, engine: engine}
	engine.POST("/faucet", s.handleFaucet)
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(monitoring.Handler()))
	return s
}

// Handler returns the underlying HTTP handler, used by tests and by the
// serve command's http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleFaucet(c *gin.Context) {
	// Bind failures flow through the service with an empty receiver, so the
	// rejection is still audit-logged like every other exit path.
	var req faucetRequest
	_ = c.ShouldBindJSON(&req)

	success, err := s.service.Handle(c.Request.Context(), faucet.DispatchRequest{
		RecipientAddress: strings.TrimSpace(req.Receiver),
		RequesterIP:      requesterIP(c),
		UserAgent:        c.Request.UserAgent(),
	})
	if err != nil {
		status, resp := mapError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, successResponse{
		Success:         true,
		TransactionHash: success.TxHash,
		ChainID:         success.ChainID,
		Height:          strconv.FormatUint(success.Height, 10),
		Amount:          success.Amount,
		Denom:           success.Denom,
		Memo:            success.Memo,
		SenderAddress:   success.SenderAddress,
		ReceiverAddress: success.ReceiverAddress,
		SenderBalance:   success.SenderBalance,
		ReceiverBalance: success.ReceiverBalance,
		GasUsed:         strconv.FormatUint(success.GasUsed, 10),
		GasWanted:       strconv.FormatUint(success.GasWanted, 10),
		ExplorerTxURL:   success.ExplorerTxURL,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	chainID, err := s.healthDial().GetChainID(ctx)
	if err != nil {
		logx.Warn("api", "health probe failed: ", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "chain": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "chainId": chainID})
}

// requesterIP resolves the client IP from proxy headers before falling back
// to the socket address.
func requesterIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(c.GetHeader("X-Real-IP")); real != "" {
		return real
	}
	return c.ClientIP()
}

func mapError(err error) (int, errorResponse) {
	message := err.Error()
	var fe *ferrors.FaucetError
	if e, ok := err.(*ferrors.FaucetError); ok {
		fe = e
		message = fe.Message
	}

	switch ferrors.CodeOf(err) {
	case ferrors.ErrCodeQuotaIP:
		return http.StatusTooManyRequests, errorResponse{Error: message, RateLimitType: "ip"}
	case ferrors.ErrCodeQuotaAddress:
		return http.StatusTooManyRequests, errorResponse{Error: message, RateLimitType: "address"}
	case ferrors.ErrCodeQuotaBoth:
		return http.StatusTooManyRequests, errorResponse{Error: message, RateLimitType: "both"}
	case ferrors.ErrCodeInvalidAddress, ferrors.ErrCodeInvalidRequest, ferrors.ErrCodeUnknownIP:
		return http.StatusBadRequest, errorResponse{Error: message}
	default:
		return http.StatusInternalServerError, errorResponse{Error: message}
	}
}
