package directory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pqxdh/internal/domain"
)

const (
	bundlesCollection   = "bundles"
	envelopesCollection = "envelopes"
)

type (
	signedDoc struct {
		ID        uint32 `bson:"id"`
		Public    []byte `bson:"public"`
		Signature []byte `bson:"signature"`
	}

	kyberDoc struct {
		ID        uint32 `bson:"id"`
		Version   uint8  `bson:"version"`
		Public    []byte `bson:"public"`
		Signature []byte `bson:"signature"`
	}

	oneTimeDoc struct {
		ID     uint32 `bson:"id"`
		Public []byte `bson:"public"`
	}

	bundleDoc struct {
		Username       string       `bson:"_id"`
		RegistrationID uint32       `bson:"registration_id"`
		IdentityKey    []byte       `bson:"identity_key"`
		SignedPreKey   signedDoc    `bson:"signed_pre_key"`
		KyberPreKey    kyberDoc     `bson:"kyber_pre_key"`
		OneTimePreKeys []oneTimeDoc `bson:"one_time_pre_keys"`
	}

	envelopeDoc struct {
		ID        string `bson:"_id"`
		From      string `bson:"from"`
		To        string `bson:"to"`
		Handshake []byte `bson:"handshake"`
		Timestamp int64  `bson:"timestamp"`
		Received  int64  `bson:"received"`
	}
)

// MongoRepository persists bundles and mailboxes in a MongoDB database.
// One-time pre-keys are popped with findOneAndUpdate, which is atomic per
// document, so concurrent directory replicas never hand out the same key.
type MongoRepository struct {
	bundles   *mongo.Collection
	envelopes *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		bundles:   db.Collection(bundlesCollection),
		envelopes: db.Collection(envelopesCollection),
	}
}

// EnsureIndexes creates the mailbox index. It is idempotent.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.envelopes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "to", Value: 1}, {Key: "received", Value: 1}},
	})
	return errors.Wrap(err, "mongo: create envelope index")
}

func (r *MongoRepository) PutBundle(ctx context.Context, b domain.PublishedBundle) error {
	doc := toBundleDoc(b)

	// A new identity key invalidates everything published under the old one.
	res, err := r.bundles.ReplaceOne(ctx,
		bson.M{"_id": doc.Username, "identity_key": bson.M{"$ne": doc.IdentityKey}},
		doc,
	)
	if err != nil {
		return errors.Wrap(err, "mongo: replace bundle")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	update := bson.M{
		"$set": bson.M{
			"registration_id": doc.RegistrationID,
			"identity_key":    doc.IdentityKey,
			"signed_pre_key":  doc.SignedPreKey,
			"kyber_pre_key":   doc.KyberPreKey,
		},
		"$addToSet": bson.M{"one_time_pre_keys": bson.M{"$each": doc.OneTimePreKeys}},
	}
	_, err = r.bundles.UpdateOne(ctx, bson.M{"_id": doc.Username}, update, options.Update().SetUpsert(true))
	return errors.Wrap(err, "mongo: update bundle")
}

func (r *MongoRepository) TakeBundle(ctx context.Context, username string) (domain.KeyBundle, error) {
	var doc bundleDoc
	err := r.bundles.FindOneAndUpdate(ctx,
		bson.M{"_id": username},
		bson.M{"$pop": bson.M{"one_time_pre_keys": -1}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.KeyBundle{}, ErrNotFound
	}
	if err != nil {
		return domain.KeyBundle{}, errors.Wrap(err, "mongo: take bundle")
	}
	pb, err := fromBundleDoc(doc)
	if err != nil {
		return domain.KeyBundle{}, err
	}
	// The pop above removed exactly the key Take hands out.
	return pb.Take(), nil
}

func (r *MongoRepository) Enqueue(ctx context.Context, env domain.Envelope) error {
	_, err := r.envelopes.InsertOne(ctx, envelopeDoc{
		ID:        env.ID,
		From:      env.From,
		To:        env.To,
		Handshake: env.Handshake,
		Timestamp: env.Timestamp,
		Received:  time.Now().UnixNano(),
	})
	return errors.Wrap(err, "mongo: enqueue")
}

func (r *MongoRepository) Pending(ctx context.Context, username string, limit int) ([]domain.Envelope, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.envelopes.Find(ctx, bson.M{"to": username}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo: find envelopes")
	}
	var docs []envelopeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "mongo: read envelopes")
	}

	out := make([]domain.Envelope, len(docs))
	for i, d := range docs {
		out[i] = domain.Envelope{ID: d.ID, From: d.From, To: d.To, Handshake: d.Handshake, Timestamp: d.Timestamp}
	}
	return out, nil
}

func (r *MongoRepository) Ack(ctx context.Context, username string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.envelopes.DeleteMany(ctx, bson.M{"to": username, "_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "mongo: ack envelopes")
}

func toBundleDoc(b domain.PublishedBundle) bundleDoc {
	doc := bundleDoc{
		Username:       b.Username,
		RegistrationID: uint32(b.RegistrationID),
		IdentityKey:    b.IdentityKey.Slice(),
		SignedPreKey: signedDoc{
			ID:        uint32(b.SignedPreKey.ID),
			Public:    b.SignedPreKey.Public.Slice(),
			Signature: b.SignedPreKey.Signature,
		},
		KyberPreKey: kyberDoc{
			ID:        uint32(b.KyberPreKey.ID),
			Version:   uint8(b.KyberPreKey.Version),
			Public:    b.KyberPreKey.Public,
			Signature: b.KyberPreKey.Signature,
		},
		OneTimePreKeys: make([]oneTimeDoc, len(b.OneTimePreKeys)),
	}
	for i, k := range b.OneTimePreKeys {
		doc.OneTimePreKeys[i] = oneTimeDoc{ID: uint32(k.ID), Public: k.Public.Slice()}
	}
	return doc
}

func fromBundleDoc(doc bundleDoc) (domain.PublishedBundle, error) {
	ik, err := domain.X25519PublicFrom(doc.IdentityKey)
	if err != nil {
		return domain.PublishedBundle{}, errors.WithMessage(err, "stored identity key")
	}
	spk, err := domain.X25519PublicFrom(doc.SignedPreKey.Public)
	if err != nil {
		return domain.PublishedBundle{}, errors.WithMessage(err, "stored signed pre-key")
	}
	pb := domain.PublishedBundle{
		Username:       doc.Username,
		RegistrationID: domain.RegistrationID(doc.RegistrationID),
		IdentityKey:    ik,
		SignedPreKey: domain.SignedPreKeyPublic{
			ID:        domain.SignedPreKeyID(doc.SignedPreKey.ID),
			Public:    spk,
			Signature: doc.SignedPreKey.Signature,
		},
		KyberPreKey: domain.KyberPreKeyPublic{
			ID:        domain.KyberPreKeyID(doc.KyberPreKey.ID),
			Version:   domain.Version(doc.KyberPreKey.Version),
			Public:    doc.KyberPreKey.Public,
			Signature: doc.KyberPreKey.Signature,
		},
	}
	for _, k := range doc.OneTimePreKeys {
		pub, err := domain.X25519PublicFrom(k.Public)
		if err != nil {
			return domain.PublishedBundle{}, errors.WithMessagef(err, "stored one-time pre-key %d", k.ID)
		}
		pb.OneTimePreKeys = append(pb.OneTimePreKeys, domain.OneTimePreKeyPublic{ID: domain.OneTimePreKeyID(k.ID), Public: pub})
	}
	return pb, nil
}

var _ Repository = (*MongoRepository)(nil)
