// Package seeder generates synthetic log batches for development and
// load testing. The output matches what the production channels carry:
// gzipped objects for the bucket path and compressed envelopes for the
// stream path.
package seeder

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var trailEvents = []string{
	"ConsoleLogin", "AssumeRole", "GetObject", "PutObject",
	"RunInstances", "TerminateInstances", "CreateUser", "DeleteUser",
}

// CloudTrailObject builds a gzipped CloudTrail-shaped object body with
// the given number of records spread backwards over the window.
func CloudTrailObject(count int, spread time.Duration) ([]byte, error) {
	records := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		eventTime := spreadTime(i, count, spread)
		records = append(records, map[string]any{
			"eventVersion":       "1.08",
			"eventTime":          eventTime.UTC().Format(time.RFC3339),
			"eventName":          trailEvents[rand.Intn(len(trailEvents))],
			"eventSource":        "signin.amazonaws.com",
			"awsRegion":          "us-east-1",
			"sourceIPAddress":    gofakeit.IPv4Address(),
			"userAgent":          gofakeit.UserAgent(),
			"recipientAccountId": fmt.Sprintf("%012d", rand.Int63n(1e12)),
			"userIdentity": map[string]any{
				"type":     "IAMUser",
				"userName": gofakeit.Username(),
			},
		})
	}

	data, err := json.Marshal(map[string]any{"Records": records})
	if err != nil {
		return nil, err
	}
	return gzipBytes(data)
}

// SyslogObject builds a gzipped auth log with the given number of lines.
func SyslogObject(count int, spread time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < count; i++ {
		ts := spreadTime(i, count, spread)
		fmt.Fprintf(&buf, "%s %s sshd[%d]: Accepted publickey for %s from %s port %d ssh2\n",
			ts.Format("Jan  2 15:04:05"),
			gofakeit.Word(),
			rand.Intn(30000)+1000,
			gofakeit.Username(),
			gofakeit.IPv4Address(),
			rand.Intn(60000)+1024,
		)
	}
	return gzipBytes(buf.Bytes())
}

// StreamPayload builds a gzipped subscription envelope carrying the given
// number of events for one log group.
func StreamPayload(group, stream string, count int) ([]byte, error) {
	events := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, map[string]any{
			"id":        gofakeit.UUID(),
			"timestamp": time.Now().Add(-time.Duration(i) * time.Second).UnixMilli(),
			"message": fmt.Sprintf("%s: connection from %s",
				gofakeit.Word(), gofakeit.IPv4Address()),
		})
	}

	envelope := map[string]any{
		"messageType": "DATA_MESSAGE",
		"owner":       fmt.Sprintf("%012d", rand.Int63n(1e12)),
		"logGroup":    group,
		"logStream":   stream,
		"logEvents":   events,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return gzipBytes(data)
}

// ObjectNotification builds a bucket notification announcing one object.
func ObjectNotification(bucket, key string, size int) ([]byte, error) {
	return json.Marshal(map[string]any{
		"Records": []map[string]any{
			{
				"eventName": "ObjectCreated:Put",
				"s3": map[string]any{
					"bucket": map[string]any{"name": bucket},
					"object": map[string]any{"key": key, "size": size},
				},
			},
		},
	})
}

func spreadTime(i, count int, spread time.Duration) time.Time {
	now := time.Now()
	if spread <= 0 || count <= 1 {
		return now
	}
	step := spread / time.Duration(count)
	return now.Add(-spread + time.Duration(i)*step)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
