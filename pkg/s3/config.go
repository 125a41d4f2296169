package s3

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds the connection settings for AWS S3 or an S3-compatible
// store such as MinIO or R2.
type ClientConfig struct {
	Endpoint       string // empty for AWS
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool // only used when Endpoint has no scheme
	ForcePathStyle bool
	api            ObjectAPI
}

// WithEndpoint sets a custom endpoint for S3-compatible providers.
func WithEndpoint(endpoint string, useSSL bool) ClientOption {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
		c.UseSSL = useSSL
	}
}

// WithRegion sets the region.
func WithRegion(region string) ClientOption {
	return func(c *ClientConfig) {
		c.Region = region
	}
}

// WithBucket sets the default bucket.
func WithBucket(bucket string) ClientOption {
	return func(c *ClientConfig) {
		c.Bucket = bucket
	}
}

// WithCredentials sets static credentials. Empty keys fall back to the
// default AWS credential chain.
func WithCredentials(accessKey, secretKey string) ClientOption {
	return func(c *ClientConfig) {
		c.AccessKey = accessKey
		c.SecretKey = secretKey
	}
}

// WithPathStyle forces path-style addressing.
func WithPathStyle(force bool) ClientOption {
	return func(c *ClientConfig) {
		c.ForcePathStyle = force
	}
}

// WithAPI replaces the SDK client, mainly for tests.
func WithAPI(api ObjectAPI) ClientOption {
	return func(c *ClientConfig) {
		c.api = api
	}
}
