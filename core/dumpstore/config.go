package dumpstore

// Config configures the S3-compatible bucket minidumps are archived to.
type Config struct {
	Bucket          string `env:"DUMPSTORE_S3_BUCKET,required"`
	Region          string `env:"DUMPSTORE_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"DUMPSTORE_S3_ENDPOINT"`
	AccessKeyID     string `env:"DUMPSTORE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"DUMPSTORE_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"DUMPSTORE_S3_USE_PATH_STYLE" envDefault:"false"`
	KeyPrefix       string `env:"DUMPSTORE_S3_KEY_PREFIX" envDefault:"dumps/"`
}
