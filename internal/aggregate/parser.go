package aggregate

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
	"github.com/fraiseql/fraiseql-engine/internal/filter"
)

// validate runs the struct-tag checks on a decoded rawRequest. A single
// validator instance is reused across calls, per the library's own
// guidance that Validate is safe for concurrent use and expensive to
// construct repeatedly.
var validate = validator.New()

// rawRequest mirrors the wire JSON shape described in the aggregate input
// contract: table (required), optional where/groupBy/aggregates/having/
// orderBy/limit/offset.
type rawRequest struct {
	Table      string                        `json:"table" validate:"required"`
	Where      map[string]json.RawMessage    `json:"where"`
	GroupBy    map[string]json.RawMessage    `json:"groupBy"`
	Aggregates []map[string]json.RawMessage  `json:"aggregates"`
	Having     map[string]json.RawMessage    `json:"having"`
	OrderBy    map[string]string             `json:"orderBy"`
	Limit      *int                          `json:"limit"  validate:"omitempty,gte=0"`
	Offset     *int                          `json:"offset" validate:"omitempty,gte=0"`
}

// Parser parses aggregate requests against a single fact table's metadata.
type Parser struct {
	Fact FactTable
}

// NewParser returns a Parser bound to fact.
func NewParser(fact FactTable) *Parser { return &Parser{Fact: fact} }

// Parse parses the raw JSON aggregate request body into a normalized
// AggregationRequest.
func (p *Parser) Parse(body []byte) (AggregationRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return AggregationRequest{}, ferr.Validation("malformed aggregate request: %v", err)
	}
	if err := validate.Struct(&raw); err != nil {
		return AggregationRequest{}, ferr.Validation("%v", err)
	}

	req := AggregationRequest{Table: raw.Table, Limit: raw.Limit, Offset: raw.Offset}

	for key, rawVal := range raw.Where {
		wf, ok, err := p.parseWhereField(key, rawVal)
		if err != nil {
			return AggregationRequest{}, err
		}
		if ok {
			req.Where = append(req.Where, wf)
		}
	}

	for key, rawVal := range raw.GroupBy {
		sel, err := p.parseGroupByField(key, rawVal)
		if err != nil {
			return AggregationRequest{}, err
		}
		req.GroupBy = append(req.GroupBy, sel)
	}

	for _, entry := range raw.Aggregates {
		for key, rawVal := range entry {
			sel, err := p.parseAggregateSelection(key, rawVal)
			if err != nil {
				return AggregationRequest{}, err
			}
			req.Aggregates = append(req.Aggregates, sel)
		}
	}

	selected := map[string]bool{}
	for _, a := range req.Aggregates {
		selected[a.Alias] = true
	}

	for key, rawVal := range raw.Having {
		hc, err := p.parseHavingKey(key, rawVal, selected)
		if err != nil {
			return AggregationRequest{}, err
		}
		req.Having = append(req.Having, hc)
	}

	for field, dir := range raw.OrderBy {
		d := OrderAsc
		if strings.EqualFold(dir, "DESC") {
			d = OrderDesc
		}
		req.OrderBy = append(req.OrderBy, OrderByClause{Field: field, Direction: d})
	}

	return req, nil
}

// parseWhereField splits a flat "field_op" key at the last underscore.
// Unknown operator suffixes are silently dropped (permissive), per the
// aggregate WHERE parsing contract.
func (p *Parser) parseWhereField(key string, rawVal json.RawMessage) (WhereField, bool, error) {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return WhereField{}, false, nil
	}
	field, opName := key[:idx], key[idx+1:]
	if _, ok := filter.ParseOperator(opName); !ok {
		return WhereField{}, false, nil
	}
	var v interface{}
	if err := json.Unmarshal(rawVal, &v); err != nil {
		return WhereField{}, false, ferr.Validation("where.%s: %v", key, err)
	}
	return WhereField{Field: field, Op: opName, Value: v}, true, nil
}

func (p *Parser) findCalendarDimension(sourceCol string) (CalendarDimension, bool) {
	for _, cd := range p.Fact.CalendarDimensions {
		if cd.SourceColumn == sourceCol {
			return cd, true
		}
	}
	return CalendarDimension{}, false
}

func (p *Parser) findCalendarBucket(cd CalendarDimension, granularity string) (CalendarBucket, bool) {
	for _, b := range cd.Buckets {
		if b.Granularity == granularity {
			return b, true
		}
	}
	return CalendarBucket{}, false
}

func (p *Parser) findDenormalizedFilter(name string) (DenormalizedFilter, bool) {
	for _, f := range p.Fact.DenormalizedFilters {
		if f.Name == name {
			return f, true
		}
	}
	return DenormalizedFilter{}, false
}

func isTemporalSQLType(t SQLType) bool { return t == SQLTimestamp || t == SQLDate }

// parseGroupByField implements the four-priority GroupBy parsing rule.
func (p *Parser) parseGroupByField(key string, rawVal json.RawMessage) (GroupBySelection, error) {
	var v interface{}
	if err := json.Unmarshal(rawVal, &v); err != nil {
		return GroupBySelection{}, ferr.Validation("groupBy.%s: %v", key, err)
	}

	if s, ok := v.(string); ok {
		// Priority 3: explicit form {"col": "day"}.
		if cd, ok := p.findCalendarDimension(key); ok {
			if b, ok := p.findCalendarBucket(cd, s); ok {
				return GroupBySelection{
					Kind: GroupByCalendarDimension, SourceColumn: cd.SourceColumn,
					CalendarColumn: cd.CalendarColumn, JSONKey: b.JSONKey, Alias: key,
				}, nil
			}
		}
		if f, ok := p.findDenormalizedFilter(key); ok && isTemporalSQLType(f.Type) {
			if bucket, ok := bucketNames[s]; ok {
				return GroupBySelection{Kind: GroupByTemporalBucket, Column: key, Bucket: bucket, Alias: key}, nil
			}
		}
		return GroupBySelection{}, ferr.Validation("groupBy.%s: no calendar or timestamp column matches granularity %q", key, s)
	}

	if b, ok := v.(bool); ok && b {
		// Priority 1/2: split the key at the last underscore and try a
		// calendar dimension, then a DATE_TRUNC fallback.
		if idx := strings.LastIndex(key, "_"); idx > 0 {
			prefix, granularity := key[:idx], key[idx+1:]
			if cd, ok := p.findCalendarDimension(prefix); ok {
				if bucket, ok := p.findCalendarBucket(cd, granularity); ok {
					return GroupBySelection{
						Kind: GroupByCalendarDimension, SourceColumn: cd.SourceColumn,
						CalendarColumn: cd.CalendarColumn, JSONKey: bucket.JSONKey, Alias: key,
					}, nil
				}
			}
			if f, ok := p.findDenormalizedFilter(prefix); ok && isTemporalSQLType(f.Type) {
				if bucket, ok := bucketNames[granularity]; ok {
					return GroupBySelection{Kind: GroupByTemporalBucket, Column: prefix, Bucket: bucket, Alias: key}, nil
				}
			}
		}
		// Priority 4: plain dimension.
		return GroupBySelection{Kind: GroupByDimension, Path: key, Alias: key}, nil
	}

	return GroupBySelection{}, ferr.Validation("groupBy.%s: unsupported value", key)
}

func (p *Parser) isDimensionOrMeasure(name string) bool {
	if _, ok := p.Fact.Measures[name]; ok {
		return true
	}
	for _, d := range p.Fact.Dimensions {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (p *Parser) firstDimensionOrID() string {
	if len(p.Fact.Dimensions) > 0 {
		return p.Fact.Dimensions[0].Name
	}
	return "id"
}

// parseAggregateSelection implements the aggregate-name parsing rule.
func (p *Parser) parseAggregateSelection(key string, rawVal json.RawMessage) (AggregateSelection, error) {
	if key == "count" {
		return AggregateSelection{Kind: AggCount, Alias: key}, nil
	}
	if key == "count_distinct" {
		return AggregateSelection{Kind: AggCountDistinct, Field: p.firstDimensionOrID(), Alias: key}, nil
	}

	idx := strings.LastIndex(key, "_")
	if idx <= 0 {
		return AggregateSelection{}, ferr.Validation("unknown aggregate %q", key)
	}
	field, suffix := key[:idx], key[idx+1:]

	if suffix == "distinct" {
		// handle "<field>_count_distinct" (two-token suffix)
		if idx2 := strings.LastIndex(field, "_"); idx2 > 0 && field[idx2+1:] == "count" {
			realField := field[:idx2]
			if !p.isDimensionOrMeasure(realField) {
				return AggregateSelection{}, ferr.Validation("count_distinct target %q not found", realField)
			}
			return AggregateSelection{Kind: AggCountDistinct, Field: realField, Alias: key}, nil
		}
	}

	if suffix == "and" || suffix == "or" {
		if idx2 := strings.LastIndex(field, "_"); idx2 > 0 && field[idx2+1:] == "bool" {
			realField := field[:idx2]
			fn := FnBoolAnd
			if suffix == "or" {
				fn = FnBoolOr
			}
			return AggregateSelection{Kind: AggBool, Field: realField, BoolFn: fn, Alias: key}, nil
		}
	}

	if suffix == "agg" {
		// handle "<field>_array_agg", "_json_agg", "_jsonb_agg", "_string_agg"
		if idx2 := strings.LastIndex(field, "_"); idx2 > 0 {
			if fn, ok := fnSuffixes[field[idx2+1:]+"_agg"]; ok {
				return AggregateSelection{Kind: AggMeasure, Field: field[:idx2], Function: fn, Alias: key}, nil
			}
		}
	}

	if fn, ok := fnSuffixes[suffix]; ok {
		return AggregateSelection{Kind: AggMeasure, Field: field, Function: fn, Alias: key}, nil
	}

	return AggregateSelection{}, ferr.Validation("unknown aggregate %q", key)
}

// parseHavingKey splits key on a known operator suffix; the base name must
// equal an already-selected aggregate alias.
func (p *Parser) parseHavingKey(key string, rawVal json.RawMessage, selected map[string]bool) (HavingCondition, error) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 {
		return HavingCondition{}, ferr.Validation("having.%s: malformed key", key)
	}
	alias, opName := key[:idx], key[idx+1:]
	op, ok := havingSuffixes[opName]
	if !ok {
		return HavingCondition{}, ferr.Validation("having.%s: unknown operator %q", key, opName)
	}
	if !selected[alias] {
		return HavingCondition{}, ferr.Validation("having.%s: references unselected aggregate %q", key, alias)
	}
	var v interface{}
	if err := json.Unmarshal(rawVal, &v); err != nil {
		return HavingCondition{}, ferr.Validation("having.%s: %v", key, err)
	}
	return HavingCondition{Alias: alias, Op: op, Value: v}, nil
}
