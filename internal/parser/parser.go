// Package parser transforms one raw entry into a canonical structured
// document ready for indexing. The pipeline runs a fixed sequence of
// stages over a mutable document: decode, basic fields, ignore filter,
// multi-type normalization, schema mapping, custom transform, enrichment,
// cleanup, serialization.
package parser

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/telhawk-systems/telhawk-loader/internal/enrich"
	"github.com/telhawk-systems/telhawk-loader/internal/fieldpath"
	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
	"github.com/telhawk-systems/telhawk-loader/internal/models"
	"github.com/telhawk-systems/telhawk-loader/internal/timestamp"
	"github.com/telhawk-systems/telhawk-loader/internal/transform"
)

// Parser turns raw entries of one log type into documents. Safe for
// concurrent use: all state is read-only after construction.
type Parser struct {
	lt       *logtypes.LogType
	resolver *timestamp.Resolver
	enricher enrich.Enricher
	hook     transform.Func

	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithEnricher injects the enrichment capability.
func WithEnricher(e enrich.Enricher) Option {
	return func(p *Parser) { p.enricher = e }
}

// WithTransforms wires the registered custom transform hook, if the log
// type enables one.
func WithTransforms(r *transform.Registry) Option {
	return func(p *Parser) {
		if p.lt.CustomTransform {
			if fn, ok := r.Get(p.lt.Name); ok {
				p.hook = fn
			}
		}
	}
}

// withClock stubs wall-clock capture in tests.
func withClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// New builds a parser for one log type.
func New(lt *logtypes.LogType, opts ...Option) *Parser {
	p := &Parser{
		lt:       lt,
		resolver: timestamp.New(lt.TimestampKey, lt.TimestampFormat, lt.TimestampTZ),
		enricher: enrich.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the full stage pipeline over one entry. It always returns an
// outcome; a hard failure on this entry never affects its siblings.
func (p *Parser) Parse(entry models.RawEntry, meta models.BatchMetadata) models.Outcome {
	doc, err := p.decode(entry, meta)
	if err != nil {
		return models.Failed(err)
	}

	ts, ingested, err := p.addBasicFields(doc, entry)
	if err != nil {
		return models.Failed(err)
	}

	if reason, ignored := p.checkIgnored(doc); ignored {
		return models.Ignored(reason)
	}

	p.normalizeMultiTypeFields(doc)
	p.mapToECS(doc, meta)
	p.addLocality(doc, meta)

	if p.hook != nil {
		doc, err = p.hook(doc)
		if err != nil {
			return models.Failed(&TransformError{LogType: p.lt.Name, Err: err})
		}
	}

	p.enrichIPs(doc)
	fieldpath.Prune(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return models.Failed(fmt.Errorf("serializing document of log type %s: %w", p.lt.Name, err))
	}
	return models.Accepted(data, p.documentID(doc), p.indexName(ts, ingested))
}

// decode produces the initial field map from the raw entry.
func (p *Parser) decode(entry models.RawEntry, meta models.BatchMetadata) (map[string]any, error) {
	if entry.Structured || entry.Fields != nil {
		doc := make(map[string]any, len(entry.Fields))
		for k, v := range entry.Fields {
			doc[k] = v
		}
		return doc, nil
	}

	switch p.lt.FileFormat {
	case models.FormatCSV:
		doc := make(map[string]any)
		header := strings.Fields(meta.CSVHeader)
		values := strings.Fields(entry.Text)
		for i, name := range header {
			if i >= len(values) {
				break
			}
			doc[name] = values[i]
		}
		fieldpath.SanitizeKeys(doc)
		return doc, nil

	case models.FormatText:
		re := p.lt.PatternRegexp()
		if re == nil {
			return nil, &DecodeError{LogType: p.lt.Name, Raw: entry.Text,
				Pattern: "(none configured)"}
		}
		m := re.FindStringSubmatch(entry.Text)
		if m == nil {
			return nil, &DecodeError{LogType: p.lt.Name, Pattern: re.String(), Raw: entry.Text}
		}
		doc := make(map[string]any)
		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			doc[name] = m[i]
		}
		return doc, nil

	default:
		// json entries always arrive pre-parsed as Fields
		return map[string]any{}, nil
	}
}

// addBasicFields synthesizes the fixed document namespace and resolves the
// event timestamp. Returns the event timestamp and the ingestion instant.
func (p *Parser) addBasicFields(doc map[string]any, entry models.RawEntry) (time.Time, time.Time, error) {
	message := p.originalMessage(entry)

	ts, err := p.resolveTimestamp(doc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	ingested := p.now().UTC()

	basic := map[string]any{
		"@message":   message,
		"@timestamp": ts.Format(time.RFC3339Nano),
		"@log_type":  p.lt.Name,
		"event": map[string]any{
			"module":   p.lt.Name,
			"ingested": ingested.Format(time.RFC3339Nano),
		},
	}

	if p.lt.DocID != "" {
		if v := fieldpath.GetString(doc, p.lt.DocID); v != "" {
			basic["@id"] = v
		}
	}
	if _, ok := basic["@id"]; !ok {
		sum := md5.Sum([]byte(message))
		basic["@id"] = hex.EncodeToString(sum[:])
	}

	fieldpath.Merge(doc, basic)
	return ts, ingested, nil
}

func (p *Parser) originalMessage(entry models.RawEntry) string {
	if entry.Structured {
		return entry.Message
	}
	if entry.Fields != nil {
		data, _ := json.Marshal(entry.Fields)
		return string(data)
	}
	return entry.Text
}

func (p *Parser) resolveTimestamp(doc map[string]any) (time.Time, error) {
	if p.resolver.Field() == "" {
		return p.resolver.Resolve(nil)
	}
	raw := fieldpath.Get(doc, p.resolver.Field())
	if raw == nil {
		return time.Time{}, &timestamp.ParseError{
			Field:  p.resolver.Field(),
			Format: p.lt.TimestampFormat,
			Raw:    "",
			Err:    fmt.Errorf("field is absent from entry of log type %s", p.lt.Name),
		}
	}
	return p.resolver.Resolve(raw)
}

// checkIgnored applies the log type's field ignore rules.
func (p *Parser) checkIgnored(doc map[string]any) (string, bool) {
	for field, forbidden := range p.lt.Ignores {
		v := fieldpath.GetString(doc, field)
		if v != "" && strings.Contains(v, forbidden) {
			return fmt.Sprintf("field %s contains %q", field, forbidden), true
		}
	}
	return "", false
}

// normalizeMultiTypeFields rebuilds fields that hold sometimes-JSON,
// sometimes-string content into a consistent shape at their path.
func (p *Parser) normalizeMultiTypeFields(doc map[string]any) {
	if len(p.lt.MultiTypeFields) == 0 {
		return
	}
	rebuilt := map[string]any{}
	for _, field := range p.lt.MultiTypeFields {
		v := fieldpath.Get(doc, field)
		if v == nil {
			continue
		}
		fieldpath.Merge(rebuilt, fieldpath.Put(field, v))
	}
	fieldpath.Merge(doc, rebuilt)
}

// mapToECS resolves the configured schema mapping and merges the ECS tree
// into the document.
func (p *Parser) mapToECS(doc map[string]any, meta models.BatchMetadata) {
	ecs := map[string]any{}
	if p.lt.ECSVersion != "" {
		ecs["ecs"] = map[string]any{"version": p.lt.ECSVersion}
	}
	if p.lt.CloudProvider != "" {
		ecs["cloud"] = map[string]any{"provider": p.lt.CloudProvider}
	}

	for _, dest := range sortedKeys(p.lt.ECS) {
		v := fieldpath.Get(doc, p.lt.ECS[dest])
		if v == nil {
			continue
		}
		if strings.HasSuffix(dest, ".ip") {
			if _, err := netip.ParseAddr(fmt.Sprintf("%v", v)); err != nil {
				// not an address, drop the fragment without failing the entry
				continue
			}
		}
		fieldpath.Merge(ecs, fieldpath.Put(dest, v))
	}

	if cloud, ok := ecs["cloud"].(map[string]any); ok {
		if fieldpath.Get(cloud, "account.id") == nil && meta.AccountID != "" {
			fieldpath.Merge(cloud, fieldpath.Put("account.id", meta.AccountID))
		}
		if _, ok := cloud["region"]; !ok {
			if meta.Region != "" {
				cloud["region"] = meta.Region
			} else {
				cloud["region"] = "unknown"
			}
		}
	}

	// static fields merge last so they win over anything mapped above
	for _, dest := range sortedKeys(p.lt.StaticECS) {
		fieldpath.Merge(ecs, fieldpath.Put(dest, p.lt.StaticECS[dest]))
	}

	fieldpath.Merge(doc, ecs)
}

// addLocality records where the batch came from.
func (p *Parser) addLocality(doc map[string]any, meta models.BatchMetadata) {
	switch meta.Channel {
	case models.ChannelS3:
		doc["@log_s3bucket"] = meta.S3Bucket
		doc["@log_s3key"] = meta.S3Key
	case models.ChannelStream:
		doc["@log_group"] = meta.LogGroup
		doc["@log_stream"] = meta.LogStream
	}
}

// enrichIPs attaches geo/as data for the configured IP-bearing fields.
func (p *Parser) enrichIPs(doc map[string]any) {
	for _, field := range p.lt.GeoIPFields {
		ip := fieldpath.GetString(doc, field+".ip")
		if ip == "" {
			continue
		}
		frag := map[string]any{}
		if city, ok := p.enricher.City(ip); ok {
			frag["geo"] = city
		}
		if asn, ok := p.enricher.ASN(ip); ok {
			frag["as"] = asn
		}
		if len(frag) == 0 {
			continue
		}
		fieldpath.Merge(doc, fieldpath.Put(field, frag))
	}
}

// documentID derives the delivery id: the @id field, with the configured
// suffix field appended when present.
func (p *Parser) documentID(doc map[string]any) string {
	id := fieldpath.GetString(doc, "@id")
	if p.lt.DocIDSuffix != "" {
		if suffix := fieldpath.GetString(doc, p.lt.DocIDSuffix); suffix != "" {
			return id + "_" + suffix
		}
	}
	return id
}

// indexName applies the rotation policy to the base index name.
func (p *Parser) indexName(ts, ingested time.Time) string {
	name := p.lt.IndexName
	if p.lt.IndexRotation == logtypes.RotationNone {
		return name
	}
	dt := ts
	if p.lt.IndexTime == "event_ingested" {
		dt = ingested
	}
	dt = dt.In(time.FixedZone("", int(p.lt.IndexTZ*3600)))

	switch p.lt.IndexRotation {
	case logtypes.RotationDaily:
		return name + dt.Format("-2006-01-02")
	case logtypes.RotationWeekly:
		year, week := dt.ISOWeek()
		return fmt.Sprintf("%s-%04d-w%02d", name, year, week)
	case logtypes.RotationMonthly:
		return name + dt.Format("-2006-01")
	default:
		return name + dt.Format("-2006")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
