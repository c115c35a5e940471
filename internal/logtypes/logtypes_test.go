package logtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `
log_types:
  - name: cloudtrail
    s3_key: CloudTrail/
    file_format: json
    json_delimiter: Records
    index_name: log-aws-cloudtrail
    index_rotation: monthly
    ecs_version: "1.6.0"
    cloud_provider: aws
    timestamp_key: eventTime
    timestamp_format: iso8601
    ecs:
      source.ip: sourceIPAddress
      cloud.account.id: recipientAccountId
  - name: vpcflowlogs
    s3_key: vpcflowlogs/
    log_group: vpcflow
    file_format: text
    pattern: '^(?P<version>\d+) (?P<account_id>\d+)'
    index_name: log-aws-vpcflowlogs
  - name: linux-secure
    log_group: /var/log/secure
    file_format: text
    pattern: '^(?P<ts>\w{3}\s+\d+ \d{2}:\d{2}:\d{2}) (?P<host>\S+)'
    timestamp_key: ts
    timestamp_format: syslog
    index_name: log-linux-secure
`

func TestParse(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	require.NoError(t, err)
	require.Len(t, table.All(), 3)

	ct := table.Get("cloudtrail")
	require.NotNil(t, ct)
	assert.Equal(t, "Records", ct.JSONDelimiter)
	assert.Equal(t, "monthly", ct.IndexRotation)
	assert.Equal(t, "sourceIPAddress", ct.ECS["source.ip"])
	assert.NotNil(t, ct.S3KeyRegexp())

	vpc := table.Get("vpcflowlogs")
	require.NotNil(t, vpc)
	assert.Equal(t, RotationNone, vpc.IndexRotation, "rotation defaults to none")
	assert.NotNil(t, vpc.PatternRegexp())
}

func TestParseRejectsBadFormat(t *testing.T) {
	_, err := Parse([]byte(`
log_types:
  - name: broken
    file_format: xml
    index_name: log-broken
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte(`
log_types:
  - name: broken
    file_format: text
    index_name: log-broken
    pattern: '(unclosed'
`))
	require.Error(t, err)
}

func TestParseRejectsDuplicate(t *testing.T) {
	_, err := Parse([]byte(`
log_types:
  - name: twice
    file_format: json
    index_name: log-a
  - name: twice
    file_format: json
    index_name: log-b
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestMatchS3Key(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	require.NoError(t, err)

	assert.Equal(t, "cloudtrail", table.MatchS3Key("AWSLogs/123456789012/CloudTrail/us-east-1/file.json.gz"))
	assert.Equal(t, "vpcflowlogs", table.MatchS3Key("AWSLogs/123456789012/vpcflowlogs/us-east-1/file.log.gz"))
	assert.Equal(t, Unknown, table.MatchS3Key("random/object.txt"))
}

func TestMatchLogGroup(t *testing.T) {
	table, err := Parse([]byte(sampleTable))
	require.NoError(t, err)

	assert.Equal(t, "linux-secure", table.MatchLogGroup("/var/log/secure", ""))
	assert.Equal(t, "vpcflowlogs", table.MatchLogGroup("prod-VPCFlow-group", ""))
	// unlabeled group falls back to the head of the first message
	assert.Equal(t, "vpcflowlogs", table.MatchLogGroup("forwarded", "vpcflow 2 123456789012"))
	assert.Equal(t, Unknown, table.MatchLogGroup("something-else", "nothing here"))
}
