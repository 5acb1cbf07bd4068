// Package healthtrack provides the types, interfaces, and helpers shared by
// every client of the health-tracking API.
//
// # Overview
//
// Endpoints are described by a Descriptor. Every response is wrapped in an
// Envelope with a code, an optional message, and optional data; list
// endpoints carry a Page as their data. A concrete client is built by the
// htclient package:
//
//	cli, err := htclient.New(ctx, &healthtrack.Config{
//	  BaseURL:     "https://api.example.com/",
//	  AccessToken: token,
//	})
//	if err != nil { log.Fatal(err) }
//	defer cli.Close()
//
//	user, err := cli.User().CurrentUserInfo(ctx)
//
// # Errors
//
// Every failed call returns either ErrCancelled or an *Error of one of three
// kinds:
//
//   - KindTransport: the HTTP status was outside 2xx, or the request never
//     produced a response (StatusCode is UnknownStatusCode in that case).
//   - KindDecoding: the body did not match the expected shape, or data the
//     call requires was absent.
//   - KindBusiness: the envelope code was not 200. Code and Message carry the
//     server's values.
//
// Use IsTransport, IsDecoding, IsBusiness and IsUnauthorized, or errors.Is
// with ErrTransport, ErrDecoding and ErrBusiness:
//
//	_, err := cli.User().InitInfo(ctx)
//	switch {
//	case healthtrack.IsUnauthorized(err):
//	  // sign in again
//	case healthtrack.IsBusiness(err):
//	  var e *healthtrack.Error
//	  errors.As(err, &e)
//	  fmt.Println(e.Code, e.MessageText())
//	}
//
// # Envelope decoding
//
// DecodeEnvelope applies its checks in a fixed order: HTTP status, then body
// shape, then envelope code. Object keys written in snake_case are accepted
// and mapped to the lowerCamel names the types declare.
package healthtrack
