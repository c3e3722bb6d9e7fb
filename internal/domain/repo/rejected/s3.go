package rejected

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/common/version"

	"github.com/openshift-assisted/inventory-sync/internal/log"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

const (
	unknownHostname = "<unknown>"
	unknownSource   = "unknown"

	keyTemplate = "<prefix>/<year>/<month>/<day>/<source>/<category>/<id>.json"
)

var ErrNilCause = errors.New("nil processing error cause")

// ObjectPutter is the part of the s3 client the writer needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Writer struct {
	s3client ObjectPutter
	clock    clockwork.Clock

	bucket string
	prefix string

	hostname string
}

func NewS3Writer(s3client ObjectPutter, clock clockwork.Clock, bucket string, prefix string) S3Writer {
	hostname, err := os.Hostname()
	if err != nil {
		log.Logger().Error(err, "failed to get hostname, falling backing to "+unknownHostname)

		hostname = unknownHostname
	}

	return S3Writer{
		s3client: s3client,
		clock:    clock,
		bucket:   bucket,
		prefix:   strings.TrimSuffix(prefix, "/"),
		hostname: hostname,
	}
}

// WriteProcessingError stores pErr with its inputs. Throttling and server side failures are
// returned retryable.
func (r S3Writer) WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	obj, err := r.createRejected(pErr)
	if err != nil {
		return fmt.Errorf("failed to create local model: %w", err)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal local model: %w", err)
	}

	key := r.computeObjectKey(pErr, obj.ProcessingContext, uuid.NewString())
	contentType := "application/json"

	params := &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		Body:        bytes.NewReader(b),
		ContentType: &contentType,
	}

	_, err = r.s3client.PutObject(ctx, params)
	if err != nil {
		if isRetryable(err) {
			err = pipeline.NewErrRetryableError(err)
		}

		return fmt.Errorf("failed to write in s3: %w", err)
	}

	log.Logger().V(2).Info("Rejected record written", "key", key)

	return nil
}

// Process makes the writer usable as the dead letter sink of an error pipeline.
func (r S3Writer) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	return r.WriteProcessingError(ctx, pErr)
}

func (r S3Writer) createRejected(pErr pipeline.ErrProcessingError) (Rejected, error) {
	if pErr.Unwrap() == nil {
		return Rejected{}, ErrNilCause
	}

	ret := Rejected{
		ProcessingContext: ProcessingContext{
			Component: Component{
				Version:  version.Version,
				Branch:   version.Branch,
				Revision: version.Revision,
			},
			Time: r.clock.Now().UTC(),
			Host: r.hostname,
		},
		Sources: Sources{
			Provider: pErr.Source,
			Inputs:   make([]KeyValue, 0, len(pErr.AdditionalInputs)),
		},
		Reason: Reason{
			Category: pErr.Category,
			Error:    pErr.Error(),
		},
	}

	for _, kv := range pErr.AdditionalInputs {
		ret.Sources.Inputs = append(ret.Sources.Inputs, KeyValue{
			Source: kv.Source,
			Key:    kv.Key,
			Value:  kv.Value,
		})
	}

	return ret, nil
}

func (r S3Writer) computeObjectKey(pErr pipeline.ErrProcessingError, pc ProcessingContext, id string) string {
	source := pErr.Source
	if source == "" {
		source = unknownSource
	}

	category := pErr.Category
	if category == "" {
		category = pipeline.UnknownCategory
	}

	template := strings.NewReplacer(
		"<prefix>", r.prefix,
		"<year>", fmt.Sprintf("%04d", pc.Time.Year()),
		"<month>", fmt.Sprintf("%02d", pc.Time.Month()),
		"<day>", fmt.Sprintf("%02d", pc.Time.Day()),
		"<source>", source,
		"<category>", category,
		"<id>", id,
	)

	return strings.TrimPrefix(template.Replace(keyTemplate), "/")
}

func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// network failure
		return true
	}

	switch apiErr.ErrorCode() {
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout", "Throttling":
		return true
	default:
		return apiErr.ErrorFault() == smithy.FaultServer
	}
}
