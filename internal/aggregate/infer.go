package aggregate

// GraphQLType is an output scalar kind name, used when generating the
// aggregate result's GraphQL field type.
type GraphQLType string

const (
	GQLInt     GraphQLType = "Int"
	GQLFloat   GraphQLType = "Float"
	GQLString  GraphQLType = "String"
	GQLID      GraphQLType = "ID"
	GQLJSON    GraphQLType = "JSON"
	GQLBoolean GraphQLType = "Boolean"
)

var sqlToGraphQL = map[SQLType]GraphQLType{
	SQLDecimal:   GQLFloat,
	SQLFloat:     GQLFloat,
	SQLInt:       GQLInt,
	SQLBigInt:    GQLInt,
	SQLText:      GQLString,
	SQLUUID:      GQLID,
	SQLJSONB:     GQLJSON,
	SQLJSON:      GQLJSON,
	SQLTimestamp: GQLString,
	SQLDate:      GQLString,
	SQLBoolean:   GQLBoolean,
}

// InferOutputType derives the GraphQL output type of one aggregate
// selection against the fact table it was parsed from. COUNT and
// COUNT DISTINCT always yield Int; AVG, STDDEV and VARIANCE always yield
// Float; SUM/MIN/MAX inherit the underlying measure's SQL type; the
// array/JSON aggregates always yield JSON; STRING_AGG always yields
// String; boolean aggregates always yield Boolean.
func (f FactTable) InferOutputType(sel AggregateSelection) GraphQLType {
	switch sel.Kind {
	case AggCount, AggCountDistinct:
		return GQLInt
	case AggBool:
		return GQLBoolean
	case AggMeasure:
		switch sel.Function {
		case FnAvg, FnStddev, FnVariance:
			return GQLFloat
		case FnArrayAgg, FnJSONAgg, FnJSONBAgg:
			return GQLJSON
		case FnStringAgg:
			return GQLString
		case FnSum, FnMin, FnMax:
			if t, ok := f.Measures[sel.Field]; ok {
				return sqlToGraphQL[t]
			}
			return GQLFloat
		default:
			return GQLFloat
		}
	default:
		return GQLJSON
	}
}
