package faucet

import (
	"context"

	"saffaucet/audit"
	"saffaucet/config"
	ferrors "saffaucet/errors"
	"saffaucet/geoip"
	"saffaucet/logx"
	"saffaucet/monitoring"
	"saffaucet/quota"
	"saffaucet/wallet"
)

// Service is the top-level faucet entry point: quota gate, address
// validation, dispatch, and the exactly-once audit write on every exit path.
type Service struct {
	provider   config.Provider
	engine     *quota.Engine
	dispatcher *Dispatcher
	recorder   *audit.Recorder
	resolver   *geoip.Resolver
}

func NewService(provider config.Provider, engine *quota.Engine, dispatcher *Dispatcher, recorder *audit.Recorder, resolver *geoip.Resolver) *Service {
	return &Service{
		provider:   provider,
		engine:     engine,
		dispatcher: dispatcher,
		recorder:   recorder,
		resolver:   resolver,
	}
}

// Handle processes one inbound request end to end. Exactly one audit record
// is written before returning, whichever branch is taken.
func (s *Service) Handle(ctx context.Context, req DispatchRequest) (*Success, error) {
	record := &audit.Record{
		IP:               req.RequesterIP,
		UserAgent:        req.UserAgent,
		RecipientAddress: req.RecipientAddress,
	}
	if s.resolver != nil {
		record.Region = s.resolver.Region(ctx, req.RequesterIP)
	}

	if req.RecipientAddress == "" {
		monitoring.RecordRequest(OutcomeValidationFail)
		s.recorder.Record(ctx, record)
		return nil, ferrors.NewValidationError(ferrors.ErrCodeInvalidRequest, ferrors.ErrMsgInvalidRequest)
	}

	if req.RequesterIP == "" {
		monitoring.RecordRequest(OutcomeValidationFail)
		s.recorder.Record(ctx, record)
		return nil, ferrors.NewValidationError(ferrors.ErrCodeUnknownIP, ferrors.ErrMsgUnknownIP)
	}

	// Config is read fresh per dispatch and may change between requests.
	cfg, err := s.provider.Load()
	if err != nil {
		monitoring.RecordRequest(OutcomeConfigError)
		s.recorder.Record(ctx, record)
		return nil, err
	}

	decision, err := s.engine.Decide(ctx, req.RequesterIP, req.RecipientAddress, cfg.DailyLimit)
	if err != nil {
		monitoring.RecordRequest(OutcomeDispatchFail)
		s.recorder.Record(ctx, record)
		return nil, ferrors.NewTransportError("quota check failed: " + err.Error())
	}
	if !decision.Allowed() {
		monitoring.RecordRequest(OutcomeQuotaDenied)
		monitoring.RecordQuotaDenial(string(decision.Kind))
		s.recorder.Record(ctx, record)
		logx.Info("faucet", "quota denied (", decision.Kind, ") ip=", req.RequesterIP, " addr=", req.RecipientAddress)
		return nil, quotaError(decision.Kind)
	}

	if !wallet.ValidateAddress(req.RecipientAddress, cfg.AddressPrefix) {
		monitoring.RecordRequest(OutcomeValidationFail)
		s.recorder.Record(ctx, record)
		return nil, ferrors.NewValidationError(ferrors.ErrCodeInvalidAddress, ferrors.ErrMsgInvalidAddress)
	}

	success, err := s.dispatcher.Dispatch(ctx, cfg, req.RecipientAddress)
	if err != nil {
		monitoring.RecordRequest(OutcomeDispatchFail)
		s.recorder.Record(ctx, record)
		return nil, err
	}

	record.Success = true
	record.TxHash = success.TxHash
	monitoring.RecordRequest(OutcomeSuccess)
	s.recorder.Record(ctx, record)
	logx.Info("faucet", "dispatched ", success.Amount, success.Denom, " to ", req.RecipientAddress, " tx ", success.TxHash)
	return success, nil
}

func quotaError(kind quota.Kind) *ferrors.FaucetError {
	switch kind {
	case quota.DenyBoth:
		return ferrors.NewQuotaError(ferrors.ErrCodeQuotaBoth, ferrors.ErrMsgQuotaBoth)
	case quota.DenyIP:
		return ferrors.NewQuotaError(ferrors.ErrCodeQuotaIP, ferrors.ErrMsgQuotaIP)
	default:
		return ferrors.NewQuotaError(ferrors.ErrCodeQuotaAddress, ferrors.ErrMsgQuotaAddress)
	}
}
