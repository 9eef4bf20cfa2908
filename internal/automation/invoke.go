package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	bdart "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	bdarttypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// syntheticThinking replaces the model's reasoning in raw answers: the
// managed service returns structured output only, and downstream
// consumers expect the same envelope in every mode.
const syntheticThinking = "<thinking>No explanation available when using managed document automation.</thinking>"

// invoke submits the async job and returns the invocation ARN.
func (r *Runner) invoke(ctx context.Context, bucket, fileKey, blueprintARN string) (string, error) {
	inputURI := "s3://" + bucket + "/" + fileKey
	outputURI := "s3://" + bucket + "/" + strings.Trim(r.cfg.OutputPrefix, "/")

	out, err := r.runtime.InvokeDataAutomationAsync(ctx, &bdart.InvokeDataAutomationAsyncInput{
		InputConfiguration:       &bdarttypes.InputConfiguration{S3Uri: aws.String(inputURI)},
		OutputConfiguration:      &bdarttypes.OutputConfiguration{S3Uri: aws.String(outputURI)},
		Blueprints:               []bdarttypes.Blueprint{{BlueprintArn: aws.String(blueprintARN)}},
		DataAutomationProfileArn: aws.String(r.cfg.ProfileARN),
	})
	if err != nil {
		return "", err
	}
	arn := aws.ToString(out.InvocationArn)
	if arn == "" {
		return "", fmt.Errorf("invocation response missing arn")
	}
	if r.logger != nil {
		r.logger.Info(ctx, "automation job started", "file_key", fileKey, "invocation_arn", arn)
	}
	return arn, nil
}

// awaitInvocation polls the job until it reaches a terminal status. The
// configured invoke timeout bounds the wait; cancellation of ctx itself
// is passed through unchanged.
func (r *Runner) awaitInvocation(ctx context.Context, invocationARN string) (*bdart.GetDataAutomationStatusOutput, error) {
	waitCtx := ctx
	if r.cfg.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.cfg.InvokeTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(r.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, models.Errorf(models.ErrParsingStageFailed, "automation job did not finish within %s", r.cfg.InvokeTimeout)
		case <-ticker.C:
		}

		out, err := r.runtime.GetDataAutomationStatus(waitCtx, &bdart.GetDataAutomationStatusInput{
			InvocationArn: aws.String(invocationARN),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, models.Errorf(models.ErrParsingStageFailed, "automation status: %v", err)
		}

		switch out.Status {
		case bdarttypes.AutomationJobStatusSuccess:
			return out, nil
		case bdarttypes.AutomationJobStatusServiceError, bdarttypes.AutomationJobStatusClientError:
			msg := aws.ToString(out.ErrorMessage)
			if msg == "" {
				msg = "data automation job failed"
			}
			return nil, models.Errorf(models.ErrParsingStageFailed, "automation job %s: %s", out.Status, msg)
		}

		if r.logger != nil {
			r.logger.Debug(ctx, "automation job pending", "invocation_arn", invocationARN, "status", string(out.Status))
		}
	}
}

func (r *Runner) pollInterval() time.Duration {
	if r.cfg.PollInterval > 0 {
		return r.cfg.PollInterval
	}
	return time.Second
}

// jobMetadata is the slice of the job metadata document the runner
// navigates: first segment of the first output.
type jobMetadata struct {
	OutputMetadata []struct {
		SegmentMetadata []struct {
			CustomOutputPath string `json:"custom_output_path"`
		} `json:"segment_metadata"`
	} `json:"output_metadata"`
}

func (m jobMetadata) customOutputPath() string {
	if len(m.OutputMetadata) == 0 || len(m.OutputMetadata[0].SegmentMetadata) == 0 {
		return ""
	}
	return m.OutputMetadata[0].SegmentMetadata[0].CustomOutputPath
}

type segmentOutput struct {
	InferenceResult map[string]any `json:"inference_result"`
}

// collectOutput follows the job metadata to the segment's custom output
// and returns its inference result.
func (r *Runner) collectOutput(ctx context.Context, status *bdart.GetDataAutomationStatusOutput, fileKey string) (map[string]any, error) {
	if status.OutputConfiguration == nil || aws.ToString(status.OutputConfiguration.S3Uri) == "" {
		return nil, models.Errorf(models.ErrParsingStageFailed, "automation job for %s reported no output location", fileKey)
	}

	metaRaw, err := r.readURI(ctx, aws.ToString(status.OutputConfiguration.S3Uri))
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "read job metadata for %s: %v", fileKey, err)
	}
	var meta jobMetadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "decode job metadata for %s: %v", fileKey, err)
	}
	outputPath := meta.customOutputPath()
	if outputPath == "" {
		return nil, models.Errorf(models.ErrParsingStageFailed, "automation job for %s produced no segment output", fileKey)
	}

	segRaw, err := r.readURI(ctx, outputPath)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "read segment output for %s: %v", fileKey, err)
	}
	var segment segmentOutput
	if err := json.Unmarshal(segRaw, &segment); err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "decode segment output for %s: %v", fileKey, err)
	}
	if segment.InferenceResult == nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "segment output for %s has no inference result", fileKey)
	}
	return segment.InferenceResult, nil
}

// readURI fetches an s3:// URI through the gateway. The job writes into
// the gateway's own bucket, so a URI pointing elsewhere is an error.
func (r *Runner) readURI(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}
	if own := r.store.Bucket(); own != "" && bucket != own {
		return nil, fmt.Errorf("object %s is outside bucket %s", uri, own)
	}
	rc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func splitS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %s", uri)
	}
	return bucket, key, nil
}

// syntheticRawAnswer wraps the structured answer in the thinking/json
// envelope. The JSON is embedded as-is, without HTML entity escaping.
func syntheticRawAnswer(answer map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(answer); err != nil {
		return "", err
	}
	encoded := strings.TrimSuffix(buf.String(), "\n")
	return syntheticThinking + "<json>" + encoded + "</json>", nil
}

func (r *Runner) persistResult(ctx context.Context, result *models.DocumentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return models.Errorf(models.ErrParsingStageFailed, "encode result for %s: %v", result.FileKey, err)
	}
	key := store.ResultKey(result.FileKey)
	if err := r.store.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return models.Errorf(models.ErrArtifactUnavailable, "persist result for %s: %v", result.FileKey, err)
	}
	return nil
}
