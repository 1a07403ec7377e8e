// Package core resolves, dispatches and streams document conversions.
//
// The package holds no conversion algorithms. It decides which registered
// converter handles a request and manages the contract around running it,
// independent of any transport. The web handlers and the CLI both drive it.
//
// # Resolution
//
// A declared MIME type resolves to a [DocumentKind] with [ResolveSourceKind];
// parameters are ignored. A requested format token resolves to a
// [TargetFormat] with [ResolveTargetFormat]; tokens are case-sensitive.
// Neither side is ever guessed: failures carry the offending raw value.
//
// # Dispatch
//
// A [Registry] maps [ConversionOptions] to a [Converter]. The [Dispatcher]
// looks the converter up before any output is written:
//
//	reg := core.NewRegistry()
//	reg.Register(core.OptionsFrom(core.KindODT).Into(core.FormatPDF), odtToPDF)
//
//	d := core.NewDispatcher(reg)
//	produce, err := d.Plan(opts, core.Source{Body: body, Name: "report.odt"})
//
// Converter failures come back as [ConversionFailedError]; failed writes to
// the output as [TransportFailedError].
//
// # Streaming
//
// [BuildResponse] fixes content type and the optional attachment filename up
// front, then [Response.Stream] runs the producer into a [ByteSink] when the
// caller is ready to send the body. The sink is released on every path.
//
// # Error Handling
//
// [MapError] turns any error into a [UserMessage] with a support code:
//
//   - FMT001-FMT002: resolution errors
//   - CNV001-CNV004: dispatch and conversion errors
//   - IO001: client connection lost mid-stream
//   - REQ001, FILE001-FILE002, RATE001: request errors
package core
