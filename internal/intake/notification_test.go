package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectNotification(t *testing.T) {
	payload := []byte(`{
		"Records": [
			{
				"eventName": "ObjectCreated:Put",
				"s3": {
					"bucket": {"name": "security-logs"},
					"object": {"key": "AWSLogs/123456789012/CloudTrail/us-east-1/file.json.gz", "size": 2048}
				}
			},
			{
				"eventName": "ObjectCreated:Put",
				"s3": {
					"bucket": {"name": "security-logs"},
					"object": {"key": "reports/cost+usage%3D2024.csv", "size": 10}
				}
			}
		]
	}`)

	refs, err := ParseObjectNotification(payload)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "security-logs", refs[0].Bucket)
	assert.Equal(t, "AWSLogs/123456789012/CloudTrail/us-east-1/file.json.gz", refs[0].Key)
	assert.Equal(t, int64(2048), refs[0].Size)

	// keys are URL-decoded, including + for space
	assert.Equal(t, "reports/cost usage=2024.csv", refs[1].Key)
}

func TestParseObjectNotificationTestEvent(t *testing.T) {
	refs, err := ParseObjectNotification([]byte(`{"Service":"Amazon S3","Event":"s3:TestEvent"}`))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestParseObjectNotificationMalformed(t *testing.T) {
	_, err := ParseObjectNotification([]byte(`{"Records": [`))
	assert.Error(t, err)
}

func TestParseObjectNotificationSkipsEmptyRecords(t *testing.T) {
	payload := []byte(`{"Records": [{"eventName": "ObjectCreated:Put", "s3": {"bucket": {"name": ""}, "object": {"key": ""}}}]}`)
	refs, err := ParseObjectNotification(payload)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
