package judge

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #endregion

// #region service

// EvaluateMethod is the full gRPC method name of a remote judge.
const EvaluateMethod = "/handoff.judge.v1.JudgeService/Evaluate"

// CredentialHeader carries the judge credential to a remote judge.
const CredentialHeader = "x-judge-credential"

// JudgeServiceClient is the client side of a remote judge service.
type JudgeServiceClient interface {
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type judgeServiceClient struct {
	cc grpc.ClientConnInterface
}

func (c *judgeServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EvaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion

// #region runner-struct

// GRPCOptions configures a GRPCRunner.
type GRPCOptions struct {
	Timeout       time.Duration
	CredentialEnv string // forwarded as metadata when set
}

// GRPCRunner sends judge runs to a remote judge service.
type GRPCRunner struct {
	conn   *grpc.ClientConn
	client JudgeServiceClient
	opts   GRPCOptions
	logger zerolog.Logger
}

// NewGRPCRunner connects to a remote judge at addr.
func NewGRPCRunner(addr string, opts GRPCOptions, logger zerolog.Logger) (*GRPCRunner, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	r := NewGRPCRunnerWithService(&judgeServiceClient{cc: conn}, opts, logger)
	r.conn = conn
	return r, nil
}

// NewGRPCRunnerWithService creates a runner around an existing service client.
// Used for testing without a real gRPC connection.
func NewGRPCRunnerWithService(svc JudgeServiceClient, opts GRPCOptions, logger zerolog.Logger) *GRPCRunner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &GRPCRunner{
		client: svc,
		opts:   opts,
		logger: logger.With().Str("component", "judge-grpc").Logger(),
	}
}

// Close shuts down the gRPC connection, if one was dialed.
func (r *GRPCRunner) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// #endregion

// #region ready

// Ready checks the forwarded credential, if one is configured.
func (r *GRPCRunner) Ready() error {
	if r.opts.CredentialEnv != "" && os.Getenv(r.opts.CredentialEnv) == "" {
		return fmt.Errorf("%w: %s", ErrMissingCredential, r.opts.CredentialEnv)
	}
	return nil
}

// #endregion

// #region run

// Run sends the seed document and returns the judge's reply as JSON.
func (r *GRPCRunner) Run(ctx context.Context, cfg Config) ([]byte, error) {
	req, err := structpb.NewStruct(cfg.SeedDocument())
	if err != nil {
		return nil, fmt.Errorf("encode seed: %w", err)
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
	defer cancel()
	if r.opts.CredentialEnv != "" {
		runCtx = metadata.AppendToOutgoingContext(runCtx, CredentialHeader, os.Getenv(r.opts.CredentialEnv))
	}

	r.logger.Info().Str("behavior", cfg.Behavior).Str("model", cfg.TargetModel).Msg("calling remote judge")
	resp, err := r.client.Evaluate(runCtx, req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, r.opts.Timeout)
		}
		return nil, fmt.Errorf("evaluate rpc: %w", err)
	}

	out, err := protojson.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("decode judge reply: %w", err)
	}
	return out, nil
}

// #endregion
