package objectstore

import "testing"

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Endpoint:          "localhost:9000",
		AccessKey:         "a",
		SecretKey:         "b",
		Region:            "us-east-1",
		UseSSL:            false,
		BucketAttachments: "nc-attachments",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for scheme in endpoint")
	}

	invalid = valid
	invalid.BucketAttachments = " "
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for blank bucket")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.BucketAttachments != "nc-attachments" {
		t.Fatalf("BucketAttachments=%q, want nc-attachments", cfg.BucketAttachments)
	}
	if cfg.Endpoint != "localhost:9000" {
		t.Fatalf("Endpoint=%q, want localhost:9000", cfg.Endpoint)
	}
}
