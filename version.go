package procdog

// Version is the current version of the procdog library
const Version = "1.0.0"

// ProtocolVersion names the control channel wire format. The protocol is
// a single line-delimited request and response per connection; bump this
// only if that framing or the response grammar changes incompatibly.
const ProtocolVersion = "line/1"
