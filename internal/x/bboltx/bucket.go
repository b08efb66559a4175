package bboltx

import "go.etcd.io/bbolt"

// CreateBucketIfNotExists creates nested buckets with names given by the elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// Bucket gets nested buckets with names given by the elements of path.
//
// It returns nil if any of the nested buckets does not exist.
func Bucket(p BucketParent, path ...[]byte) (b *bbolt.Bucket) {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	for _, n := range path {
		b = p.Bucket(n)
		if b == nil {
			return nil
		}

		p = b
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	err := b.Put(k, v)
	Must(err)
}

// Delete removes a key from a bucket.
func Delete(b *bbolt.Bucket, k []byte) {
	err := b.Delete(k)
	Must(err)
}

// GetPath returns the value stored at the key given by the final element of
// path, within the nested buckets named by the preceding elements.
//
// It returns nil if any of the buckets, or the key itself, does not exist.
func GetPath(p BucketParent, path ...[]byte) []byte {
	n := len(path)
	if n < 2 {
		panic("path must contain at least one bucket name and a key")
	}

	b := Bucket(p, path[:n-1]...)
	if b == nil {
		return nil
	}

	return b.Get(path[n-1])
}

// PutPath stores v at the key given by the final element of path, creating
// the nested buckets named by the preceding elements as required.
func PutPath(p BucketParent, v []byte, path ...[]byte) {
	n := len(path)
	if n < 2 {
		panic("path must contain at least one bucket name and a key")
	}

	b := CreateBucketIfNotExists(p, path[:n-1]...)
	Put(b, path[n-1], v)
}
