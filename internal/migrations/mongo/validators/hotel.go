package validators

import "go.mongodb.org/mongo-driver/bson"

var HotelValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"address",
			"tel",
			"bookings",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"address": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			// E.164
			"tel": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9][0-9]{1,14}$`,
			},

			"bookings": bookingIDList,

			"createdAt": bson.M{
				"bsonType": "date",
			},

			"updatedAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var bookingIDList = bson.M{
	"bsonType": "array",
	"items": bson.M{
		"bsonType":  "string",
		"minLength": 24,
		"maxLength": 24,
	},
}
