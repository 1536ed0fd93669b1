package ingest

import (
	"modsecdb/core"

	"github.com/dlclark/regexp2"
)

// LinePattern is a single-shot pattern applied to the first non-empty line
// of a section. Named groups are field names.
type LinePattern struct {
	Name  string
	Label core.SectionLabel
	Expr  string
}

// HeaderPattern extracts one field from a header-style section. The pattern
// is searched line by line; group 1 is the value. Multi patterns collect
// every match, joined with newlines.
type HeaderPattern struct {
	Field core.Field
	Expr  string
	Multi bool
}

// LinePatterns are the summary-line patterns for sections A, B and F.
var LinePatterns = []LinePattern{
	{
		Name:  "audit_header",
		Label: core.SectionA,
		Expr: `^\[(?<timestamp>[^\]]+)\]\s+(?<unique_id>\S+)\s+` +
			`(?<source_ip>[0-9A-Fa-f:.]+)\s+(?<source_port>\d+)\s+` +
			`(?<destination_ip>[0-9A-Fa-f:.]+)\s+(?<destination_port>\d+)`,
	},
	{
		Name:  "request_line",
		Label: core.SectionB,
		Expr:  `^(?<request_method>\w+)\s+(?<uri>.*?)\s+(?<http_version_b>HTTP/\d(?:\.\d)?)\s*$`,
	},
	{
		Name:  "status_line",
		Label: core.SectionF,
		Expr:  `^(?<http_version_f>HTTP/\d(?:\.\d)?)\s+(?<http_status_code>\d{3})(?:\s+(?<http_status_text>.*?))?\s*$`,
	},
}

// header builds the pattern for a "Name: value" line.
func header(f core.Field, name string) HeaderPattern {
	return HeaderPattern{Field: f, Expr: `^` + regexp2.Escape(name) + `:[ \t]*(.*?)[ \t]*$`}
}

// HeaderPatterns lists the header-style fields of sections B, F and H.
var HeaderPatterns = map[core.SectionLabel][]HeaderPattern{
	core.SectionB: {
		header(core.FieldHost, "Host"),
		header(core.FieldConnectionB, "Connection"),
		header(core.FieldAccept, "Accept"),
		header(core.FieldUserAgent, "User-Agent"),
		header(core.FieldDNT, "DNT"),
		{Field: core.FieldReferrer, Expr: `^Referr?er:[ \t]*(.*?)[ \t]*$`},
		header(core.FieldAcceptEncoding, "Accept-Encoding"),
		header(core.FieldAcceptLanguage, "Accept-Language"),
		header(core.FieldCookie, "Cookie"),
		header(core.FieldXRequestedWith, "X-Requested-With"),
		header(core.FieldContentTypeB, "Content-Type"),
		header(core.FieldContentLengthB, "Content-Length"),
		header(core.FieldProxyConnection, "Proxy-Connection"),
		header(core.FieldAcceptCharset, "Accept-Charset"),
		header(core.FieldUACPU, "UA-CPU"),
		header(core.FieldXForwardedFor, "X-Forwarded-For"),
		header(core.FieldCacheControlB, "Cache-Control"),
		header(core.FieldVia, "Via"),
		header(core.FieldIfModifiedSince, "If-Modified-Since"),
		header(core.FieldIfNoneMatch, "If-None-Match"),
		header(core.FieldPragmaB, "Pragma"),
	},
	core.SectionF: {
		header(core.FieldXPoweredBy, "X-Powered-By"),
		header(core.FieldExpires, "Expires"),
		header(core.FieldCacheControlF, "Cache-Control"),
		header(core.FieldPragmaF, "Pragma"),
		header(core.FieldVary, "Vary"),
		header(core.FieldContentEncoding, "Content-Encoding"),
		header(core.FieldContentLengthF, "Content-Length"),
		header(core.FieldConnectionF, "Connection"),
		header(core.FieldContentTypeF, "Content-Type"),
		header(core.FieldStatus, "Status"),
		header(core.FieldKeepAlive, "Keep-Alive"),
	},
	core.SectionH: {
		{Field: core.FieldMessages, Expr: `^Message:[ \t]*(.*?)[ \t]*$`, Multi: true},
		header(core.FieldApacheHandler, "Apache-Handler"),
		header(core.FieldApacheError, "Apache-Error"),
		header(core.FieldStopwatch, "Stopwatch"),
		header(core.FieldStopwatch2, "Stopwatch2"),
		header(core.FieldProducer, "Producer"),
		header(core.FieldServer, "Server"),
		{Field: core.FieldEngineMode, Expr: `^Engine-Mode:[ \t]*"(.*?)"[ \t]*$`},
		header(core.FieldAction, "Action"),
		{Field: core.FieldXMLParserError, Expr: `^Message:[ \t]*XML parser error:[ \t]*(.*?)[ \t]*$`},
	},
}
