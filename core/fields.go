package core

// Field names a value extracted from a section. Dictionary-encoded fields
// double as dictionary category names, so request and response headers that
// share a name (Cache-Control, Content-Type, ...) carry a _b or _f suffix.
type Field string

// Section A
const (
	FieldTimestamp       Field = "timestamp"
	FieldUniqueID        Field = "unique_id"
	FieldSourceIP        Field = "source_ip"
	FieldSourcePort      Field = "source_port"
	FieldDestinationIP   Field = "destination_ip"
	FieldDestinationPort Field = "destination_port"
)

// Section B
const (
	FieldRequestMethod   Field = "request_method"
	FieldURI             Field = "uri"
	FieldHTTPVersionB    Field = "http_version_b"
	FieldHost            Field = "host"
	FieldConnectionB     Field = "connection_b"
	FieldAccept          Field = "accept"
	FieldUserAgent       Field = "user_agent"
	FieldDNT             Field = "dnt"
	FieldReferrer        Field = "referrer"
	FieldAcceptEncoding  Field = "accept_encoding"
	FieldAcceptLanguage  Field = "accept_language"
	FieldCookie          Field = "cookie"
	FieldXRequestedWith  Field = "x_requested_with"
	FieldContentTypeB    Field = "content_type_b"
	FieldContentLengthB  Field = "content_length_b"
	FieldProxyConnection Field = "proxy_connection"
	FieldAcceptCharset   Field = "accept_charset"
	FieldUACPU           Field = "ua_cpu"
	FieldXForwardedFor   Field = "x_forwarded_for"
	FieldCacheControlB   Field = "cache_control_b"
	FieldVia             Field = "via"
	FieldIfModifiedSince Field = "if_modified_since"
	FieldIfNoneMatch     Field = "if_none_match"
	FieldPragmaB         Field = "pragma_b"
)

// Section F
const (
	FieldHTTPVersionF    Field = "http_version_f"
	FieldHTTPStatusCode  Field = "http_status_code"
	FieldHTTPStatusText  Field = "http_status_text"
	FieldXPoweredBy      Field = "x_powered_by"
	FieldExpires         Field = "expires"
	FieldCacheControlF   Field = "cache_control_f"
	FieldPragmaF         Field = "pragma_f"
	FieldVary            Field = "vary"
	FieldContentEncoding Field = "content_encoding"
	FieldContentLengthF  Field = "content_length_f"
	FieldConnectionF     Field = "connection_f"
	FieldContentTypeF    Field = "content_type_f"
	FieldStatus          Field = "status"
	FieldKeepAlive       Field = "keep_alive"
)

// Section H
const (
	FieldMessages       Field = "messages"
	FieldApacheHandler  Field = "apache_handler"
	FieldApacheError    Field = "apache_error"
	FieldStopwatch      Field = "stopwatch"
	FieldStopwatch2     Field = "stopwatch2"
	FieldProducer       Field = "producer"
	FieldServer         Field = "server"
	FieldEngineMode     Field = "engine_mode"
	FieldAction         Field = "action"
	FieldXMLParserError Field = "xml_parser_error"
)

// EncodedFields lists every dictionary-encoded field grouped by the section
// that produces it. Fields absent from this list (timestamp, unique id,
// stopwatches) are stored as plain text.
var EncodedFields = map[SectionLabel][]Field{
	SectionA: {
		FieldSourceIP, FieldSourcePort, FieldDestinationIP, FieldDestinationPort,
	},
	SectionB: {
		FieldRequestMethod, FieldURI, FieldHTTPVersionB, FieldHost, FieldConnectionB,
		FieldAccept, FieldUserAgent, FieldDNT, FieldReferrer, FieldAcceptEncoding,
		FieldAcceptLanguage, FieldCookie, FieldXRequestedWith, FieldContentTypeB,
		FieldContentLengthB, FieldProxyConnection, FieldAcceptCharset, FieldUACPU,
		FieldXForwardedFor, FieldCacheControlB, FieldVia, FieldIfModifiedSince,
		FieldIfNoneMatch, FieldPragmaB,
	},
	SectionF: {
		FieldHTTPVersionF, FieldHTTPStatusCode, FieldHTTPStatusText, FieldXPoweredBy,
		FieldExpires, FieldCacheControlF, FieldPragmaF, FieldVary, FieldContentEncoding,
		FieldContentLengthF, FieldConnectionF, FieldContentTypeF, FieldStatus,
		FieldKeepAlive,
	},
	SectionH: {
		FieldMessages, FieldApacheHandler, FieldApacheError, FieldProducer,
		FieldServer, FieldEngineMode, FieldAction, FieldXMLParserError,
	},
}

// AllEncodedFields returns every dictionary-encoded field in section order.
func AllEncodedFields() []Field {
	var out []Field
	for _, label := range []SectionLabel{SectionA, SectionB, SectionF, SectionH} {
		out = append(out, EncodedFields[label]...)
	}
	return out
}
