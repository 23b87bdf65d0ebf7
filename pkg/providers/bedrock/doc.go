// Package bedrock opens Anthropic model streams hosted on AWS Bedrock.
//
// Opener sends the payload with InvokeModelWithResponseStream and exposes the
// payload chunks of the response as an llm.EventStream. Each chunk is an
// Anthropic Messages event, decoded by the anthropic package's parser.
//
// Usage:
//
//	opener, err := bedrock.NewOpener(ctx, llm.BackendConfig{
//	    Backend: llm.BackendBedrock,
//	    Model:   "anthropic.claude-3-5-sonnet-20241022-v2:0",
//	    Extra: map[string]string{
//	        "region": "us-east-1",
//	    },
//	})
//
// Credentials come from the AWS SDK's default chain (environment variables,
// shared profiles, IAM roles). The apiKey passed to Open is ignored.
package bedrock
