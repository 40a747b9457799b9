// Package awsbatch implements sched.Scheduler on AWS Batch with
// CloudFormation-managed compute environments
package awsbatch

import (
	"context"
	"encoding/json"
	"errors"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/sched"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	batchtypes "github.com/aws/aws-sdk-go-v2/service/batch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
)

// describeMax is the DescribeJobs API page ceiling
const describeMax = 100

// Scheduler submits and tracks jobs on AWS Batch
type Scheduler struct {
	batch *batch.Client
	cfn   *cloudformation.Client

	// Queue is the job queue jobs are submitted to
	Queue string
	// Definition is the registered job definition name or ARN
	Definition string
	// Stack is the CloudFormation stack owning the compute environment;
	// empty disables stack teardown
	Stack string
	// ComputeEnv is the compute environment scaled by Scale
	ComputeEnv string
}

// New builds a Scheduler from the ambient AWS configuration chain
func New(ctx context.Context, region, queue, definition, stack, computeEnv string) (*Scheduler, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "cannot load AWS configuration")
	}
	return &Scheduler{
		batch:      batch.NewFromConfig(cfg),
		cfn:        cloudformation.NewFromConfig(cfg),
		Queue:      queue,
		Definition: definition,
		Stack:      stack,
		ComputeEnv: computeEnv,
	}, nil
}

// jobSpec is the rendered per-job parameter document
type jobSpec struct {
	Parameters map[string]string `json:"parameters"`
}

// Apply submits each job in the group. On a mid-group failure the ids already
// accepted are returned with the error so the caller can record them.
func (s *Scheduler) Apply(ctx context.Context, group []sched.JobDescriptor) ([]string, error) {
	ids := make([]string, 0, len(group))
	for _, jd := range group {
		var spec jobSpec
		if err := json.Unmarshal([]byte(jd.Spec), &spec); err != nil {
			return ids, perr.Wrapf(err, perr.ErrorCodeInvalid, "job %s has a malformed spec", jd.Name)
		}
		out, err := s.batch.SubmitJob(ctx, &batch.SubmitJobInput{
			JobName:       aws.String(jd.Name),
			JobQueue:      aws.String(s.Queue),
			JobDefinition: aws.String(s.Definition),
			Parameters:    spec.Parameters,
		})
		if err != nil {
			return ids, classify(err)
		}
		ids = append(ids, aws.ToString(out.JobId))
		logger.C(ctx).Debug().Str("job", jd.Name).Str("id", aws.ToString(out.JobId)).Msg("job submitted")
	}
	return ids, nil
}

// Counts queries job states in DescribeJobs pages. Jobs the scheduler no
// longer remembers are counted as done; Batch expires job records after
// completion.
func (s *Scheduler) Counts(ctx context.Context, jobIDs []string) (sched.Counts, error) {
	var c sched.Counts
	for start := 0; start < len(jobIDs); start += describeMax {
		end := min(start+describeMax, len(jobIDs))
		page := jobIDs[start:end]
		out, err := s.batch.DescribeJobs(ctx, &batch.DescribeJobsInput{Jobs: page})
		if err != nil {
			return sched.Counts{}, classify(err)
		}
		seen := map[string]bool{}
		for _, j := range out.Jobs {
			seen[aws.ToString(j.JobId)] = true
			switch j.Status {
			case batchtypes.JobStatusSubmitted, batchtypes.JobStatusPending,
				batchtypes.JobStatusRunnable, batchtypes.JobStatusStarting:
				c.Pending++
			case batchtypes.JobStatusRunning:
				c.Running++
			case batchtypes.JobStatusFailed:
				c.Failed++
			case batchtypes.JobStatusSucceeded:
				c.Done++
			}
		}
		for _, id := range page {
			if !seen[id] {
				c.Done++
			}
		}
	}
	return c, nil
}

// Scale is a no-op: Batch compute environments scale on demand up to the
// maximum vCPUs fixed at stack creation
func (s *Scheduler) Scale(_ context.Context, _ int) error { return nil }

// Teardown terminates outstanding jobs and deletes the owning stack.
// Termination failures for individual jobs are logged and skipped; a job that
// already finished cannot be terminated.
func (s *Scheduler) Teardown(ctx context.Context, jobIDs []string) error {
	for _, id := range jobIDs {
		_, err := s.batch.TerminateJob(ctx, &batch.TerminateJobInput{
			JobId:  aws.String(id),
			Reason: aws.String("run cleanup"),
		})
		if err != nil {
			logger.C(ctx).Warn().Str("id", id).Err(err).Msg("terminate failed, skipping")
		}
	}
	if s.Stack == "" {
		return nil
	}
	_, err := s.cfn.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(s.Stack)})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps AWS API errors onto the platform error taxonomy
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "AccessDenied":
			return perr.Wrap(err, perr.ErrorCodePermission, "access denied")
		case "ClientException":
			return perr.Wrap(err, perr.ErrorCodeInvalid, "rejected by the scheduler")
		}
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "scheduler request failed")
}
