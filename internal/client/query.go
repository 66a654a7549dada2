package client

import (
	"context"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/model"
)

// MaxFilterStreams is the number of stream names FilterLogEvents accepts in
// one request.
const MaxFilterStreams = 100

// ListGroups yields every log group whose name starts with prefix, in the
// order the service returns them.
func (c *CloudWatchClient) ListGroups(ctx context.Context, prefix string) iter.Seq2[model.GroupInfo, error] {
	return func(yield func(model.GroupInfo, error) bool) {
		in := &cloudwatchlogs.DescribeLogGroupsInput{}
		if prefix != "" {
			in.LogGroupNamePrefix = aws.String(prefix)
		}
		p := cloudwatchlogs.NewDescribeLogGroupsPaginator(c.client, in)
		for p.HasMorePages() {
			out, err := call(ctx, c, "DescribeLogGroups", func(ctx context.Context) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
				return p.NextPage(ctx)
			})
			if err != nil {
				yield(model.GroupInfo{}, fmt.Errorf("describe log groups: %w", err))
				return
			}
			for _, g := range out.LogGroups {
				info := model.GroupInfo{
					Name:            aws.ToString(g.LogGroupName),
					CreationTime:    aws.ToInt64(g.CreationTime),
					RetentionInDays: aws.ToInt32(g.RetentionInDays),
					StoredBytes:     aws.ToInt64(g.StoredBytes),
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

// ListStreams yields the streams of group in the requested order.
func (c *CloudWatchClient) ListStreams(ctx context.Context, group string, order model.StreamOrder) iter.Seq2[model.StreamInfo, error] {
	return func(yield func(model.StreamInfo, error) bool) {
		in := &cloudwatchlogs.DescribeLogStreamsInput{LogGroupName: aws.String(group)}
		if order == model.OrderByLastEvent {
			in.OrderBy = types.OrderByLastEventTime
			in.Descending = aws.Bool(true)
		}
		p := cloudwatchlogs.NewDescribeLogStreamsPaginator(c.client, in)
		for p.HasMorePages() {
			out, err := call(ctx, c, "DescribeLogStreams", func(ctx context.Context) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
				return p.NextPage(ctx)
			})
			if err != nil {
				yield(model.StreamInfo{}, fmt.Errorf("describe log streams in %s: %w", group, err))
				return
			}
			for _, s := range out.LogStreams {
				info := model.StreamInfo{
					Name:                aws.ToString(s.LogStreamName),
					FirstEventTimestamp: aws.ToInt64(s.FirstEventTimestamp),
					LastEventTimestamp:  aws.ToInt64(s.LastEventTimestamp),
					LastIngestionTime:   aws.ToInt64(s.LastIngestionTime),
					CreationTime:        aws.ToInt64(s.CreationTime),
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

// FilterEvents yields the events matching q, following continuation tokens
// until the service reports no further page. The window end is exclusive.
// Each call starts a fresh page sequence; a yielded error ends it.
func (c *CloudWatchClient) FilterEvents(ctx context.Context, q model.FilterQuery) iter.Seq2[model.LogEvent, error] {
	return func(yield func(model.LogEvent, error) bool) {
		if len(q.Streams) > MaxFilterStreams {
			yield(model.LogEvent{}, fmt.Errorf("filter log events: %d streams exceeds limit of %d", len(q.Streams), MaxFilterStreams))
			return
		}
		in := &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName:   aws.String(q.Group),
			LogStreamNames: q.Streams,
		}
		if q.Window.HasStart() {
			in.StartTime = aws.Int64(q.Window.Start)
		}
		if q.Window.HasEnd() {
			// EndTime is inclusive on the service side.
			in.EndTime = aws.Int64(q.Window.End - 1)
		}
		if q.FilterPattern != "" {
			in.FilterPattern = aws.String(q.FilterPattern)
		}

		pages := 0
		for {
			out, err := call(ctx, c, "FilterLogEvents", func(ctx context.Context) (*cloudwatchlogs.FilterLogEventsOutput, error) {
				return c.client.FilterLogEvents(ctx, in)
			})
			if err != nil {
				yield(model.LogEvent{}, fmt.Errorf("filter log events in %s: %w", q.Group, err))
				return
			}
			pages++
			for _, e := range out.Events {
				ev := model.LogEvent{
					LogGroup:      q.Group,
					LogStream:     aws.ToString(e.LogStreamName),
					Timestamp:     aws.ToInt64(e.Timestamp),
					Message:       aws.ToString(e.Message),
					IngestionTime: aws.ToInt64(e.IngestionTime),
					EventID:       aws.ToString(e.EventId),
				}
				if !yield(ev, nil) {
					return
				}
			}
			if out.NextToken == nil || (in.NextToken != nil && aws.ToString(out.NextToken) == aws.ToString(in.NextToken)) {
				break
			}
			in.NextToken = out.NextToken
		}
		c.log.Debug("filter log events finished",
			logging.String("group", q.Group),
			logging.Int("streams", len(q.Streams)),
			logging.Int("pages", pages),
		)
	}
}
