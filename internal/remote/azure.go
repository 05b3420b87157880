package remote

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureBackend stores archives in an Azure Blob Storage container.
type AzureBackend struct {
	container azblob.ContainerURL
	account   string
}

// NewAzureBackend builds a container client for one storage account.
// With AZURE_STORAGE_KEY set it authenticates with a shared key,
// otherwise it falls back to anonymous access (public containers).
func NewAzureBackend(account, container string) (*AzureBackend, error) {
	credential, err := azureCredential(account)
	if err != nil {
		return nil, err
	}

	rawURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s", account, container)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Azure container URL %q: %w", rawURL, err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	return &AzureBackend{
		container: azblob.NewContainerURL(*u, pipeline),
		account:   account,
	}, nil
}

func azureCredential(account string) (azblob.Credential, error) {
	key := os.Getenv("AZURE_STORAGE_KEY")
	if key == "" {
		return azblob.NewAnonymousCredential(), nil
	}
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("invalid Azure shared key credential: %w", err)
	}
	return credential, nil
}

func (b *AzureBackend) Name() string { return "azure" }

func (b *AzureBackend) Put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	blob := b.container.NewBlockBlobURL(key)
	_, err = azblob.UploadFileToBlockBlob(ctx, f, blob, azblob.UploadToBlockBlobOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", b.account, key, err)
	}
	return nil
}

func (b *AzureBackend) Get(ctx context.Context, key, localPath string) error {
	blob := b.container.NewBlobURL(key)
	resp, err := blob.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return fmt.Errorf("failed to download blob %s/%s: %w", b.account, key, err)
	}

	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()

	return writeLocal(localPath, body)
}
