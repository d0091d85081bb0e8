// Package config loads declarative mock descriptions into a normalized Spec.
//
// Two input shapes are supported, both producing the same Spec value so the
// route table builder never branches on format:
//   - OpenAPI 3 documents (kin-openapi). Each path contributes one entry; the
//     delay comes from the x-delay-ms operation extension and the response
//     from x-response-file or the first 2xx JSON example.
//   - Service maps: a small YAML document listing named services, each with
//     a path, a delay in milliseconds and a response file or inline body.
//
// # Usage
//
//	spec, err := config.Load(ctx, "mockan.yaml", config.FormatAuto)
//	if err != nil {
//	    return err
//	}
//	for _, e := range spec.Entries {
//	    fmt.Println(e.Path, e.Delay)
//	}
//
// # Service Map Format
//
//	services:
//	  example:
//	    path: /v2/models/example/infer
//	    delay: 1200
//	    response_file: responses/example.json
//	servers:
//	  - host: 127.0.0.1
//	    port: 8080
//	include:
//	  - services/*.yaml
//
// Entry paths are normalized on load: leading and trailing slashes are
// stripped, so "/v2/models/example/infer/" becomes "v2/models/example/infer".
package config
