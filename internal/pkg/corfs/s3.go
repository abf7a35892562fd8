package corfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/mattetti/filebuffer"
)

// deleteBatchSize is the most keys S3 accepts in one DeleteObjects call.
const deleteBatchSize = 1000

// S3FileSystem abstracts AWS S3 as a filesystem. Paths take the form
// s3://bucket/key.
type S3FileSystem struct {
	s3Client  s3iface.S3API
	chunkSize int64
}

// NewS3FileSystem wraps an existing S3 client.
func NewS3FileSystem(client s3iface.S3API) *S3FileSystem {
	return &S3FileSystem{
		s3Client:  client,
		chunkSize: defaultReadChunkSize,
	}
}

type s3Path struct {
	bucket string
	key    string
}

func parseS3URI(uri string) (s3Path, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return s3Path{}, fmt.Errorf("invalid s3 path %q", uri)
	}
	trimmed := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return s3Path{}, fmt.Errorf("s3 path %q has no bucket", uri)
	}
	p := s3Path{bucket: parts[0]}
	if len(parts) == 2 {
		p.key = parts[1]
	}
	return p, nil
}

func (p s3Path) String() string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, p.key)
}

// globPrefix returns the longest literal prefix of a glob pattern.
func globPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?[\\"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func (s *S3FileSystem) listObjects(bucket, prefix string, fn func(*s3.Object)) error {
	params := &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	return s.s3Client.ListObjectsPages(params,
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				fn(object)
			}
			return true
		})
}

// ListFiles lists the objects matching pathGlob. A pattern without glob
// characters lists the object of that name and every object "below" it.
func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	parsed, err := parseS3URI(pathGlob)
	if err != nil {
		return nil, err
	}

	prefix := globPrefix(parsed.key)
	isGlob := prefix != parsed.key
	dir := strings.TrimSuffix(parsed.key, "/") + "/"

	files := make([]FileInfo, 0)
	err = s.listObjects(parsed.bucket, prefix, func(object *s3.Object) {
		key := aws.StringValue(object.Key)
		if isGlob {
			if ok, _ := path.Match(parsed.key, key); !ok {
				return
			}
		} else if parsed.key != "" && key != parsed.key && !strings.HasPrefix(key, dir) {
			return
		}
		files = append(files, FileInfo{
			Name: s3Path{bucket: parsed.bucket, key: key}.String(),
			Size: aws.Int64Value(object.Size),
		})
	})
	return files, err
}

// OpenReader opens an object for reading, starting startAt bytes in.
func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	parsed, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}
	info, err := s.Stat(filePath)
	if err != nil {
		return nil, err
	}

	reader := &s3Reader{
		client:    s.s3Client,
		bucket:    parsed.bucket,
		key:       parsed.key,
		offset:    startAt,
		chunkSize: s.chunkSize,
		totalSize: info.Size,
	}
	if startAt < info.Size {
		if err := reader.loadNextChunk(); err != nil {
			return nil, err
		}
	}
	return reader, nil
}

// OpenWriter buffers writes to an object; the object is uploaded on Close.
func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	parsed, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}
	return &s3Writer{
		client: s.s3Client,
		bucket: parsed.bucket,
		key:    parsed.key,
		buf:    filebuffer.New(nil),
	}, nil
}

// Stat returns information about an object.
func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	parsed, err := parseS3URI(filePath)
	if err != nil {
		return FileInfo{}, err
	}
	params := &s3.HeadObjectInput{
		Bucket: aws.String(parsed.bucket),
		Key:    aws.String(parsed.key),
	}
	result, err := s.s3Client.HeadObject(params)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name: filePath,
		Size: aws.Int64Value(result.ContentLength),
	}, nil
}

// Delete removes the object at filePath and every object below it.
// Deleting a missing path is not an error.
func (s *S3FileSystem) Delete(filePath string) error {
	files, err := s.ListFiles(filePath)
	if err != nil {
		return err
	}

	parsed, _ := parseS3URI(filePath)
	for start := 0; start < len(files); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(files) {
			end = len(files)
		}
		objects := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, file := range files[start:end] {
			p, _ := parseS3URI(file.Name)
			objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(p.key)})
		}
		params := &s3.DeleteObjectsInput{
			Bucket: aws.String(parsed.bucket),
			Delete: &s3.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		}
		if _, err := s.s3Client.DeleteObjects(params); err != nil {
			return err
		}
	}
	return nil
}

// Join joins path elements with '/', keeping the s3:// scheme and a
// trailing slash on the last element.
func (s *S3FileSystem) Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	stripped := make([]string, len(elem))
	for i, e := range elem {
		stripped[i] = strings.TrimPrefix(e, "s3://")
	}
	joined := path.Join(stripped...)
	if strings.HasSuffix(elem[len(elem)-1], "/") {
		joined += "/"
	}
	if strings.HasPrefix(elem[0], "s3://") {
		joined = "s3://" + joined
	}
	return joined
}

// Init initializes the S3 client from the shared AWS config.
func (s *S3FileSystem) Init() error {
	os.Setenv("AWS_SDK_LOAD_CONFIG", "true")
	sess, err := session.NewSession()
	if err != nil {
		return err
	}
	s.s3Client = s3.New(sess)
	s.chunkSize = defaultReadChunkSize
	return nil
}
