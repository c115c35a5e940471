package intake

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ObjectRef identifies one stored object announced by a bucket notification.
type ObjectRef struct {
	Bucket string
	Key    string
	Size   int64
}

// s3Notification mirrors the bucket event notification envelope.
type s3Notification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseObjectNotification extracts object references from a bucket event
// notification payload. Object keys arrive URL-encoded and are decoded
// here. A payload without a Records list is a test event and yields no
// references.
func ParseObjectNotification(data []byte) ([]ObjectRef, error) {
	var n s3Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding bucket notification: %w", err)
	}

	refs := make([]ObjectRef, 0, len(n.Records))
	for _, rec := range n.Records {
		if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
			continue
		}
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decoding object key %q: %w", rec.S3.Object.Key, err)
		}
		refs = append(refs, ObjectRef{
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
			Size:   rec.S3.Object.Size,
		})
	}
	return refs, nil
}
